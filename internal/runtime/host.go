// Package runtime mounts hosted consent banners. It composes the consent store, the
// trigger machine, the renderer and the analytics emitter over a Host that abstracts
// the page the banner runs in.
package runtime

import (
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/analytics"
	"github.com/AtRiskMedia/consent-banner-go/internal/domain/consent"
	"github.com/AtRiskMedia/consent-banner-go/internal/domain/trigger"
	templates "github.com/AtRiskMedia/consent-banner-go/internal/presentation/templates/banner"
)

// Surface is a mounted, style-isolated banner subtree.
type Surface interface {
	// OnAction registers the handler for button clicks carrying data-action.
	OnAction(f func(action string))
	// Enter starts the enter animation on the next frame.
	Enter()
	// Exit starts the exit animation.
	Exit()
	// Remove detaches the subtree immediately.
	Remove()
}

// Host is everything the runtime needs from the page.
type Host interface {
	trigger.Timers
	trigger.ScrollSource

	LocalStorage() consent.Storage
	SessionStorage() consent.Storage
	Cookies() consent.CookieJar
	Transport() analytics.Transport
	Page() analytics.PageInfo
	Now() time.Time

	// Attach mounts markup inside an isolated root owned by this widget.
	Attach(widgetID string, m templates.Markup) (Surface, error)
}
