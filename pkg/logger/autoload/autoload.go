// Package autoload initializes the global logger from LOG_* variables as a
// side effect of being imported. Import it first in main.
package autoload

import (
	configx "github.com/tanpawarit/chative-workplace-assistant/pkg/config"
	logx "github.com/tanpawarit/chative-workplace-assistant/pkg/logger"
)

func init() {
	conf, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*conf)
}
