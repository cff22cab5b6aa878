package middleware

import tele "gopkg.in/telebot.v4"

// AdminOptions defines how admin-only checks behave. IsAdmin is a capability
// check so that call sites never compare raw identities; OnReject, when nil,
// keeps the rejection silent to avoid revealing the admin surface.
type AdminOptions struct {
	IsAdmin  func(id int64) bool
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware ensures that only admin users can invoke downstream handlers.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}
			if opts.IsAdmin != nil && !opts.IsAdmin(sender.ID) {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
