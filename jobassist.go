package main

import (
	"github.com/caesium-cloud/jobassist/cmd"
	"github.com/caesium-cloud/jobassist/pkg/env"
	"github.com/caesium-cloud/jobassist/pkg/log"
)

func main() {
	if err := env.Process(); err != nil {
		log.Fatal("environment failure", "error", err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal("jobassist failure", "error", err)
	}
}
