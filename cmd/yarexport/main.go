// Command yarexport opens a YarDB database file and writes every live
// document in every collection to stdout as newline-delimited JSON. It
// still takes the engine's exclusive lock (matching the original
// implementation), so it cannot run against a file a yardb daemon has
// open.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"yardb/internal/document"
	"yardb/internal/engine"
)

func main() {
	app := &cli.App{
		Name:      "yarexport",
		Usage:     "dump every live document of a YarDB file as newline-delimited JSON",
		ArgsUsage: "<file>",
		Action:    run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "yarexport:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("usage: yarexport <file>")
	}

	e, err := engine.Open(path, zap.NewNop(), 0)
	if err != nil {
		return err
	}
	defer e.Close()

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	enc := json.NewEncoder(w)

	for _, name := range e.Collections() {
		e.Collection(name)
		docs, err := e.Read(document.NewObject())
		if err != nil {
			return err
		}
		for _, d := range docs {
			if err := enc.Encode(document.ToJSON(d)); err != nil {
				return err
			}
		}
	}
	return nil
}
