// Package ble provides the Bluetooth Low Energy transport for talking to
// Ember mugs.
//
// The transport layer handles:
//   - LE discovery scanning with advertisement callbacks
//   - Device connection and GATT service resolution
//   - Bonding (pair/unpair) through the adapter
//   - Characteristic reads and writes addressed by UUID
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   Ember payloads (pkg/protocol)│
//	├────────────────────────────────┤
//	│   GATT characteristics         │
//	├────────────────────────────────┤
//	│   BlueZ (system D-Bus)         │
//	├────────────────────────────────┤
//	│   Bluetooth LE                 │
//	└────────────────────────────────┘
//
// The only production implementation is BlueZ, which drives the Linux
// Bluetooth stack over the system D-Bus. The Scanner, Connector and Device
// interfaces exist so that higher layers (discovery, session) can be tested
// against mocks without a radio.
//
// # Scanning
//
// StartScan subscribes to BlueZ device announcements and reports every
// device seen through a callback. Devices the daemon already knows about
// are swept once at scan start since they do not re-announce. The same
// address may therefore be reported more than once; callers are expected
// to deduplicate. StopScan joins the dispatch goroutine, so no callback
// runs after it returns.
package ble
