// Package intake runs the feedback conversation: it drives the pure flow
// machine, performs the effects it asks for (storing attachments, creating
// records, relaying them to administrators) and keeps sessions consistent
// when those effects fail.
package intake
