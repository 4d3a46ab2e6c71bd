package main

import (
	"context"
)

const unknownCommand = `capfs %s: unknown command
For a list of commands available, run 'capfs help'.`

func unknown(ctx context.Context, cmd string) error {
	return usageError(unknownCommand, cmd)
}
