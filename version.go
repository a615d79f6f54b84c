package feedbackbot

// Version is the release of the bot. Builds override it with
// -ldflags "-X github.com/Doe880/telegram-feedback-bot1.Version=...".
var Version = "0.3.0"
