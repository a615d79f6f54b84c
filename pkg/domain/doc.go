/*
Package domain contains the core models of the feedback intake bot.

It defines the closed set of conversation states, the per-user Session
snapshot (current state, accumulated data and back-navigation history), the
normalized input events a shell feeds into the engine, and the durable
submission Record. This package is kept pure and free of I/O, following the
hexagonal layout of the rest of the module.

# Key Entities

  - State: a named step of the intake flow (Idle, ChoosingManager, ...).
  - History: the stack of previously visited states, used only by "back".
  - Data: the key/value bag a draft submission accumulates step by step.
  - Session: the snapshot the engine advances (State + Data + History).
  - InputEvent: a command, free text, attachment, back or restart signal.
  - Record: a persisted submission and its answer status.
  - AdminSession: the independent reply-desk state of an administrator.
*/
package domain
