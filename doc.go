/*
Package feedbackbot is a Telegram bot that collects employee feedback and
relays it to administrators.

A user picks a message type from the main menu and answers a short series of
questions: the addressee, their name and position (or a reason for staying
anonymous), the message itself and an optional attachment. Every step
accepts a "back" signal that returns to the previous question with the
answers kept. When the draft is complete it is stored as a record and sent
to every administrator, who can later answer it from the reply desk.

# Layout

The conversation is a pure state machine (internal/flow) driven by an engine
that performs storage, attachment and relay effects (pkg/intake). The admin
reply desk lives in pkg/admin. Storage and session backends are adapters
under pkg/adapters; transports (Telegram, HTTP, a console shell) live under
internal/adapters and internal/console.

# Usage

	feedbackbot serve            # Telegram polling or webhook plus the HTTP API
	feedbackbot chat --user 42   # the same flow in a terminal
	feedbackbot migrate          # create or upgrade the record schema
*/
package feedbackbot
