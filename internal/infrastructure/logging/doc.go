// Package logging provides structured logging using uber/zap.
//
// Production builds emit JSON; development builds emit coloured console
// output. Components take a *zap.Logger and tag entries with the session
// they act on:
//
//	log := logging.MustNew("info", false)
//	relayLog := logging.Session(log.Component("relay"), "user-42")
//	relayLog.Info("image relayed", zap.String("chat_id", chatID))
package logging
