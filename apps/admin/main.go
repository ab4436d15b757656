package main

import (
	"log"
	"os"

	"github.com/trezcool/masomo-emis/core"
	logsvc "github.com/trezcool/masomo-emis/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	// start CLI
	cli := commandLine{
		conf:   conf,
		logger: logger,
		out:    os.Stdout,
	}
	err := cli.run(os.Args)
	cli.close()
	if err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		os.Exit(1)
	}
}
