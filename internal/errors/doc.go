// Package errors provides structured, actionable error messages for deskroute.
//
// Every failure that reaches a user (a CLI invocation, a server start, a
// WebSocket client) is an *Error carrying a stable code:
//   - config: the deskroute configuration file (D001-D009)
//   - boot: the boot document with readable doctypes and layouts (D010-D019)
//   - protocol: session messages over the WebSocket (D020-D029)
//   - cli: command-line usage (D030-D039)
//
// # Usage
//
//	err := errors.New(errors.CodeBootMalformed).
//	    WithLocation("boot.json", 4, 17).
//	    WithSuggestion("can_read must be a list of doctype names").
//	    Wrap(cause)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR D011: Malformed boot data
//	//
//	//   boot.json:4:17
//	//
//	//      2 │   "singles": ["System Settings"],
//	//      3 │   "can_read": [
//	//   →  4 │     "ToDo": true
//	//        │                 ^
//	//      5 │   ],
//	//
//	//   Hint: can_read must be a list of doctype names
package errors
