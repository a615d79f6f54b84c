/*
Package ports defines the driven ports (interfaces) of the feedback bot.

These interfaces decouple the intake engine and the admin desk from concrete
storage and transport, so the same core runs against SQLite or Postgres,
memory or Redis sessions, Telegram or a local console.

# Key Interfaces

  - SessionStore: persists conversation snapshots (user and admin side).
  - RecordStore: creates and answers submission records.
  - AttachmentStore: stores files users attach to a submission.
  - Notifier: delivers text and files to a chat.
  - DistributedLocker: serializes access to one session across replicas.

RunSessionStoreContract and RunRecordStoreContract are shared test suites
every adapter runs against.
*/
package ports
