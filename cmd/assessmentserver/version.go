package main

import (
	"context"
	"fmt"

	"github.com/a-h/assessmentserver"
)

type VersionCommand struct {
}

func (c VersionCommand) Run(ctx context.Context) (err error) {
	fmt.Println(assessmentserver.Version)
	return nil
}
