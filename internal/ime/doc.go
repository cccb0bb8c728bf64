// Package ime is the key routing core of the input method.
//
// A Session receives every physical key transition from the compositor's
// keyboard grab and decides, per press, whether the key goes to the
// application unchanged, into the phonetic engine, into an open candidate
// list, or toggles between composition and forwarding mode. Releases follow
// their press through the Ledger, so a key forwarded to the application is
// always released there too, even when the input method loses focus.
//
// All state is owned by the goroutine running Session.Run. Other goroutines
// (the Wayland reader, the repeat timer, the tray) only send Event values:
//
//	wayland reader ─┐
//	repeat timer ───┼──> chan Event ──> Session.Run ──> Protocol / Overlay
//	tray icon ──────┘
//
// Protocol output of one transition is batched and applied with a single
// commit request.
package ime
