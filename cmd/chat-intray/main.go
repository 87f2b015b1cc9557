package main

import (
	"os"

	"github.com/cristianoliveira/chat-intray/cmd"
	"github.com/cristianoliveira/chat-intray/internal/colors"
	"github.com/cristianoliveira/chat-intray/internal/config"
	"github.com/cristianoliveira/chat-intray/internal/logging"
)

func main() {
	config.Load()
	if err := logging.InitGlobal(); err != nil {
		colors.Warning("logging disabled: " + err.Error())
	}
	defer func() {
		closeDeps()
		_ = logging.ShutdownGlobal()
	}()

	logging.Info("startup", "component", "main")
	if err := cmd.Execute(); err != nil {
		logging.Error("command failed", "error", err)
		closeDeps()
		_ = logging.ShutdownGlobal()
		os.Exit(1)
	}
}
