// Package main is the entry point of the yks media queue.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/samber/lo"
	"github.com/yks-player/yks/cmd"
	"github.com/yks-player/yks/config"
	"github.com/yks-player/yks/history"
	"github.com/yks-player/yks/icon"
	"github.com/yks-player/yks/log"
)

func main() {
	configErr := config.Setup()
	var malformed *config.ConfigError
	if configErr != nil && !errors.As(configErr, &malformed) {
		lo.Must0(configErr)
	}

	lo.Must0(log.Setup())

	if malformed != nil {
		log.Warn(malformed)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s, using defaults\n", icon.Get(icon.Warn), malformed)
	}

	go func() {
		if pruned, err := history.Prune(); err != nil {
			log.Warn(err)
		} else if pruned > 0 {
			log.Infof("pruned %d download history entries", pruned)
		}
	}()

	cmd.Execute()
}
