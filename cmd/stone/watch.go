package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

// watchAction evaluates the file once, then again after every write to it.
// Each run starts from an empty module. Events are handled one at a time.
func watchAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" || c.Args().Len() > 1 {
		return errors.New("watch takes exactly one source file")
	}
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating watcher")
	}
	defer watcher.Close()

	// Editors often replace the file instead of writing it, so the directory
	// is watched.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "watching `%s`", path)
	}

	evaluate := func() {
		code, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		if _, err := newDriver(c).Run(path, string(code)); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}

	logger := newLogger(c)
	evaluate()
	for {
		select {
		case <-c.Context.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if logger != nil {
				logger.Printf("%s changed", path)
			}
			fmt.Printf("-- %s\n", path)
			evaluate()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Println(err)
		}
	}
}
