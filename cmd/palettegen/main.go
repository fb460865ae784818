package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/Erusel/palettegen"
	"github.com/Erusel/palettegen/palette"
	"github.com/Erusel/palettegen/recolor"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const defaultDB = "palettegen.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(c.App.ErrWriter)
	logger.SetLevel(logrus.WarnLevel)
	if c.Bool("verbose") {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func usage(c *cli.Context, n int) error {
	if c.NArg() < n {
		return cli.Exit(fmt.Sprintf("usage: %s %s", c.Command.HelpName, c.Command.ArgsUsage), 1)
	}
	return nil
}

func withDB(n int, fn func(*cli.Context, *palettegen.PaletteDB) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := usage(c, n); err != nil {
			return err
		}

		db, err := palettegen.NewPaletteDB(c.String("db"))
		if err != nil {
			return cli.Exit(err, 1)
		}
		defer db.Close()

		if err := fn(c, db); err != nil {
			var ec cli.ExitCoder
			if errors.As(err, &ec) {
				return err
			}
			return cli.Exit(err, 1)
		}
		return nil
	}
}

func printPalettes(w io.Writer, palettes map[string]palette.Palette) {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s: %s\n", name, palettes[name])
	}
}

func newApp() *cli.App {
	app := cli.NewApp()

	app.Name = "palettegen"
	app.Usage = "Texture palette swapping utility"
	app.Version = "1.0.0"
	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr

	cwd, err := os.Getwd()
	if err != nil {
		logrus.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"PALETTEGEN_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "recolor",
			Usage:       "Recolor images with every selected palette",
			Description: "Each image directly inside INPUT, or INPUT itself if it is a file, is written as <name>_<palette>.png for every target palette.",
			ArgsUsage:   "[INPUT]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Value:   "generated",
					Usage:   "output directory, empty to skip",
				},
				&cli.StringFlag{
					Name:    "zip",
					Aliases: []string{"z"},
					Usage:   "also write every image to this ZIP archive",
				},
				&cli.StringFlag{
					Name:    "source",
					Aliases: []string{"s"},
					Usage:   "source palette (default: " + palette.DefaultSource + ", else the first by name)",
				},
				&cli.StringSliceFlag{
					Name:    "group",
					Aliases: []string{"g"},
					Usage:   "only use palettes in this group, may be repeated",
				},
				&cli.BoolFlag{
					Name:    "emissive",
					Aliases: []string{"e"},
					Usage:   "also write emissive textures",
				},
				&cli.IntFlag{
					Name:    "workers",
					Aliases: []string{"w"},
					Value:   10,
					Usage:   "number of images processed at once",
				},
			},
			Action: withDB(0, func(c *cli.Context, db *palettegen.PaletteDB) error {
				input := "assets"
				if c.NArg() > 0 {
					input = c.Args().First()
				}

				g := palettegen.New(db, newLogger(c))
				summary, err := g.Generate(c.Context, palettegen.Options{
					Input:    input,
					Output:   c.String("output"),
					Zip:      c.String("zip"),
					Source:   c.String("source"),
					Groups:   c.StringSlice("group"),
					Emissive: c.Bool("emissive"),
					Workers:  c.Int("workers"),
				})
				if err != nil {
					return err
				}

				fmt.Fprintf(c.App.Writer, "%d image(s) recolored, %d failed, %d file(s) written\n", summary.Images, summary.Failed, summary.Files)
				return nil
			}),
		},
		{
			Name:      "colors",
			Usage:     "List the exact colors used by an image",
			ArgsUsage: "IMAGE",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"n"},
					Usage:   "only list the most frequent colors",
				},
			},
			Action: func(c *cli.Context) error {
				if err := usage(c, 1); err != nil {
					return err
				}

				m, _, err := palettegen.ReadImage(c.Args().First())
				if err != nil {
					return cli.Exit(err, 1)
				}

				h := recolor.Histogram(m)
				if n := c.Int("limit"); n > 0 && n < len(h) {
					h = h[:n]
				}
				for _, cc := range h {
					fmt.Fprintf(c.App.Writer, "%s\t%d\n", cc.Color, cc.Count)
				}
				return nil
			},
		},
		{
			Name:      "import",
			Usage:     "Import palettes from JSON",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "replace",
					Usage: "replace all palettes rather than merging",
				},
			},
			Action: withDB(1, func(c *cli.Context, db *palettegen.PaletteDB) error {
				return db.ImportJSON(c.Args().First(), !c.Bool("replace"))
			}),
		},
		{
			Name:      "export",
			Usage:     "Export palettes as JSON",
			ArgsUsage: "[FILE]",
			Action: withDB(0, func(c *cli.Context, db *palettegen.PaletteDB) error {
				doc, err := db.Export()
				if err != nil {
					return err
				}

				if c.NArg() == 0 {
					return doc.Encode(c.App.Writer)
				}

				f, err := os.Create(c.Args().First())
				if err != nil {
					return err
				}
				if err := doc.Encode(f); err != nil {
					f.Close()
					return err
				}
				return f.Close()
			}),
		},
		{
			Name:  "source",
			Usage: "Manage source palettes",
			Subcommands: []*cli.Command{
				{
					Name:  "list",
					Usage: "List source palettes",
					Action: withDB(0, func(c *cli.Context, db *palettegen.PaletteDB) error {
						palettes, err := db.SourcePalettes()
						if err != nil {
							return err
						}
						printPalettes(c.App.Writer, palettes)
						return nil
					}),
				},
				{
					Name:      "add",
					Usage:     "Add or replace a source palette",
					ArgsUsage: "NAME COLOR...",
					Action: withDB(2, func(c *cli.Context, db *palettegen.PaletteDB) error {
						p, err := palette.ParsePalette(c.Args().Tail())
						if err != nil {
							return err
						}
						return db.AddSourcePalette(c.Args().First(), p)
					}),
				},
				{
					Name:      "delete",
					Usage:     "Delete a source palette",
					ArgsUsage: "NAME",
					Action: withDB(1, func(c *cli.Context, db *palettegen.PaletteDB) error {
						return db.DeleteSourcePalette(c.Args().First())
					}),
				},
			},
		},
		{
			Name:  "group",
			Usage: "Manage palette groups",
			Subcommands: []*cli.Command{
				{
					Name:  "list",
					Usage: "List groups",
					Action: withDB(0, func(c *cli.Context, db *palettegen.PaletteDB) error {
						groups, err := db.Groups()
						if err != nil {
							return err
						}
						for _, group := range groups {
							palettes, err := db.Palettes(group)
							if err != nil {
								return err
							}
							fmt.Fprintf(c.App.Writer, "%s (%d palettes)\n", group, len(palettes))
						}
						return nil
					}),
				},
				{
					Name:      "add",
					Usage:     "Create an empty group",
					ArgsUsage: "NAME",
					Action: withDB(1, func(c *cli.Context, db *palettegen.PaletteDB) error {
						return db.AddGroup(c.Args().First())
					}),
				},
				{
					Name:      "rename",
					Usage:     "Rename a group",
					ArgsUsage: "OLD NEW",
					Action: withDB(2, func(c *cli.Context, db *palettegen.PaletteDB) error {
						return db.RenameGroup(c.Args().Get(0), c.Args().Get(1))
					}),
				},
				{
					Name:      "delete",
					Usage:     "Delete a group and its palettes",
					ArgsUsage: "NAME",
					Action: withDB(1, func(c *cli.Context, db *palettegen.PaletteDB) error {
						return db.DeleteGroup(c.Args().First())
					}),
				},
			},
		},
		{
			Name:  "palette",
			Usage: "Manage target palettes",
			Subcommands: []*cli.Command{
				{
					Name:      "list",
					Usage:     "List the palettes in a group",
					ArgsUsage: "GROUP",
					Action: withDB(1, func(c *cli.Context, db *palettegen.PaletteDB) error {
						palettes, err := db.Palettes(c.Args().First())
						if err != nil {
							return err
						}
						printPalettes(c.App.Writer, palettes)
						return nil
					}),
				},
				{
					Name:      "add",
					Usage:     "Add or replace a palette in a group",
					ArgsUsage: "GROUP NAME COLOR...",
					Action: withDB(3, func(c *cli.Context, db *palettegen.PaletteDB) error {
						p, err := palette.ParsePalette(c.Args().Slice()[2:])
						if err != nil {
							return err
						}
						return db.AddPalette(c.Args().Get(0), c.Args().Get(1), p)
					}),
				},
				{
					Name:      "update",
					Usage:     "Change the colors of a palette",
					ArgsUsage: "GROUP NAME COLOR...",
					Action: withDB(3, func(c *cli.Context, db *palettegen.PaletteDB) error {
						p, err := palette.ParsePalette(c.Args().Slice()[2:])
						if err != nil {
							return err
						}
						return db.UpdatePalette(c.Args().Get(0), c.Args().Get(1), p)
					}),
				},
				{
					Name:      "delete",
					Usage:     "Delete a palette from a group",
					ArgsUsage: "GROUP NAME",
					Action: withDB(2, func(c *cli.Context, db *palettegen.PaletteDB) error {
						return db.DeletePalette(c.Args().Get(0), c.Args().Get(1))
					}),
				},
				{
					Name:      "copy",
					Usage:     "Copy a palette to another group",
					ArgsUsage: "GROUP NAME TOGROUP [NEWNAME]",
					Action: withDB(3, func(c *cli.Context, db *palettegen.PaletteDB) error {
						return db.CopyPalette(c.Args().Get(0), c.Args().Get(1), c.Args().Get(2), c.Args().Get(3))
					}),
				},
			},
		},
	}

	return app
}

func main() {
	// A .env file is optional, it only supplies defaults such as PALETTEGEN_DB
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.Fatal(err)
	}

	if err := newApp().Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
