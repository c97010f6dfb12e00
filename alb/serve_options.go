package alb

import (
	"github.com/aura-studio/offline/async"
	"github.com/aura-studio/offline/runner"
)

// ServeOption is any option accepted by Serve and NewEngine: alb options,
// runner options, async options, or a combined serve config.
type ServeOption any

type serveOptionBag struct {
	alb    []Option
	runner []runner.Option
	async  []async.Option
}

func (b *serveOptionBag) apply(opts ...ServeOption) {
	for _, opt := range opts {
		switch o := opt.(type) {
		case Option:
			b.alb = append(b.alb, o)
		case runner.Option:
			b.runner = append(b.runner, o)
		case async.Option:
			b.async = append(b.async, o)
		case serveConfigOption:
			if o.albOpt != nil {
				b.alb = append(b.alb, o.albOpt)
			}
			if o.runnerOpt != nil {
				b.runner = append(b.runner, o.runnerOpt)
			}
			if o.asyncOpt != nil {
				b.async = append(b.async, o.asyncOpt)
			}
		}
	}
}
