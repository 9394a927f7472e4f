// Package session implements the device workflow for one Ember mug:
// connect, pair, operate through typed accessors, release.
//
// A Session owns its transport handle exclusively. The lifecycle is
//
//	Disconnected -> Connected -> Paired -> (operating) -> Unpaired -> Disconnected
//
// Open establishes the connection, Pair bonds, and Close removes the
// bond and drops the connection exactly once regardless of how the
// operating phase ended. The Run helpers wrap the whole sequence around
// a callback:
//
//	err := session.Run(ctx, transport, "C9:75:11:22:33:44", func(s *session.Session) error {
//		status, err := s.Status(ctx)
//		if err != nil {
//			return err
//		}
//		fmt.Println(status.Name)
//		return nil
//	})
//
// Every accessor issues a fresh read; nothing is cached. The mug stores
// its own display unit, so temperature operations read the unit from the
// device rather than assuming one.
package session
