// Package main provides the imageset CLI entrypoint.
//
// Usage:
//
//	imageset <command> [options]
//
// Commands:
//   - generate: process a single source image
//   - batch:    process a source directory and write the manifest
//   - serve:    run the dev server with live reload
//   - watch:    rebuild derivatives on source changes
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/urfave/cli/v2"

	"imageset-go/internal/app/runner"
	"imageset-go/internal/bootstrap"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "imageset",
		Usage:   "Build-time responsive image derivative generator",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the configuration file",
			},
		},
		Commands: []*cli.Command{
			generateCommand(),
			batchCommand(),
			serveCommand(),
			watchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "imageset: %v\n", err)
		os.Exit(1)
	}
}

func bootstrapOptions(c *cli.Context) bootstrap.Options {
	return bootstrap.Options{
		ConfigPath: c.String("config"),
	}
}

// sizeFlags are shared by generate and batch.
func sizeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "size",
			Usage: "Single target width, overrides configured sizes",
		},
		&cli.StringSliceFlag{
			Name:  "sizes",
			Usage: "Target widths, overrides configured sizes",
		},
		&cli.StringFlag{
			Name:  "min",
			Usage: "Range minimum width",
		},
		&cli.StringFlag{
			Name:  "max",
			Usage: "Range maximum width",
		},
		&cli.IntFlag{
			Name:  "steps",
			Usage: "Number of widths generated for a min/max range",
		},
		&cli.IntFlag{
			Name:  "quality",
			Usage: "Encoding quality (1-100)",
		},
		&cli.StringFlag{
			Name:  "background",
			Usage: "Background color for flattened formats, e.g. #FFFFFF",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Target format (jpg, png, webp)",
		},
		&cli.BoolFlag{
			Name:  "placeholder",
			Usage: "Emit an inline low-resolution placeholder",
		},
		&cli.BoolFlag{
			Name:  "disable",
			Usage: "Pass the source through untouched",
		},
		&cli.BoolFlag{
			Name:  "no-cache",
			Usage: "Skip the descriptor cache and regenerate",
		},
	}
}

func overridesFromFlags(c *cli.Context) runner.Overrides {
	ov := runner.Overrides{
		Size:       c.String("size"),
		Min:        c.String("min"),
		Max:        c.String("max"),
		Steps:      c.Int("steps"),
		Quality:    c.Int("quality"),
		Background: c.String("background"),
		Format:     c.String("format"),
		NoCache:    c.Bool("no-cache"),
	}
	if sizes := c.StringSlice("sizes"); len(sizes) > 0 {
		ov.Sizes = sizes
	}
	if c.IsSet("placeholder") {
		placeholder := c.Bool("placeholder")
		ov.Placeholder = &placeholder
	}
	if c.IsSet("disable") {
		disable := c.Bool("disable")
		ov.Disable = &disable
	}
	return ov
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Generate derivatives for one source image",
		ArgsUsage: "<source>",
		Flags:     sizeFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("generate requires exactly one source image argument", 1)
			}

			descriptor, err := bootstrap.RunGenerate(
				context.Background(),
				bootstrapOptions(c),
				c.Args().First(),
				overridesFromFlags(c),
			)
			if err != nil {
				return err
			}

			out, err := sonic.MarshalIndent(descriptor, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func batchCommand() *cli.Command {
	return &cli.Command{
		Name:      "batch",
		Usage:     "Generate derivatives for every image in a directory",
		ArgsUsage: "[dir]",
		Flags:     sizeFlags(),
		Action: func(c *cli.Context) error {
			return bootstrap.RunBatch(
				context.Background(),
				bootstrapOptions(c),
				c.Args().First(),
				overridesFromFlags(c),
			)
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the dev server with live reload",
		Action: func(c *cli.Context) error {
			return bootstrap.RunServe(context.Background(), bootstrapOptions(c))
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Rebuild derivatives when source images change",
		Action: func(c *cli.Context) error {
			return bootstrap.RunWatch(context.Background(), bootstrapOptions(c))
		},
	}
}
