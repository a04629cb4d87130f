package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pyuml/internal/config"
	"pyuml/internal/crawler"
	"pyuml/internal/diagram"
	"pyuml/internal/graph"
	"pyuml/internal/index"
	"pyuml/internal/model"
	"pyuml/internal/pipeline"
	"pyuml/internal/storage"
	"pyuml/internal/watcher"
)

var (
	rootCmd = &cobra.Command{
		Use:   "pyuml",
		Short: "Python class diagram generator",
	}
	dbPath string

	scanJSONPath  string
	exportPath    string
	modelPath     string
	diagramOut    string
	renderOut     string
	renderFormat  string
	renderRankdir string
	updateForce   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "pyuml.db", "Path to the local class model database (SQLite)")

	scanCmd.Flags().StringVar(&scanJSONPath, "json", "", "Also export the model as JSON to this file")
	exportCmd.Flags().StringVarP(&exportPath, "out", "o", "classes.json", "Output file for the model JSON")
	diagramCmd.Flags().StringVar(&modelPath, "model", "", "Read the model from a JSON file instead of the database")
	diagramCmd.Flags().StringVarP(&diagramOut, "out", "o", "", "Write DOT to this file instead of stdout")
	renderCmd.Flags().StringVar(&modelPath, "model", "", "Read the model from a JSON file instead of the database")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "Output image path (defaults to config)")
	renderCmd.Flags().StringVar(&renderFormat, "format", "", "Graphviz output format (defaults to config)")
	renderCmd.Flags().StringVar(&renderRankdir, "rankdir", "", "Layout direction, BT or TB (defaults to config)")
	updateCmd.Flags().BoolVarP(&updateForce, "force", "f", false, "Rebuild the full model when git reports no changes")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(diagramCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(watchCmd)
}

func loadCfg() *config.Config {
	cfg, err := config.LoadConfig("pyuml.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func initStore() *storage.SQLiteStore {
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	return store
}

// loadModel reads the registry from --model JSON when given, otherwise
// from the database.
func loadModel(ctx context.Context) *model.Registry {
	if modelPath != "" {
		reg, err := model.LoadJSON(modelPath)
		if err != nil {
			log.Fatalf("Failed to load model %s: %v", modelPath, err)
		}
		return reg
	}

	store := initStore()
	defer store.Close()
	reg, _, err := store.LoadSnapshot(ctx)
	if err != nil {
		log.Fatalf("Failed to load model: %v", err)
	}
	return reg
}

// scanRoot runs one crawl+extract pass and saves the snapshot. Shared
// by scan and watch.
func scanRoot(ctx context.Context, root string) (*index.Result, error) {
	res, err := index.NewIndexer(crawler.New()).BuildRegistry(ctx, root)
	if err != nil {
		return nil, err
	}
	for _, skip := range res.Skipped {
		log.Printf("⚠️ Skipped %s: %s", skip.UnitPath, skip.Reason)
	}

	store := initStore()
	defer store.Close()
	if err := store.SaveSnapshot(ctx, res.Registry, res.Origins); err != nil {
		return nil, err
	}
	return res, nil
}

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a Python project and store its class model",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadCfg()
		root := cfg.Project.Root
		if len(args) > 0 {
			root = args[0]
		}

		fmt.Printf("📂 Scanning directory: %s\n", root)
		start := time.Now()

		res, err := scanRoot(context.Background(), root)
		if err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		fmt.Printf("✅ Found %d classes in %d files (%s) in %v.\n",
			res.Registry.Len(), res.Units, res.Encoding, time.Since(start))

		if scanJSONPath != "" {
			if err := model.SaveJSON(scanJSONPath, res.Registry); err != nil {
				log.Fatalf("Failed to export model: %v", err)
			}
			fmt.Printf("💾 Model exported to %s.\n", scanJSONPath)
		}
		fmt.Printf("🎉 Scan complete! Database: %s\n", dbPath)
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the stored class model",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := initStore()
		defer store.Close()

		reg, origins, err := store.LoadSnapshot(ctx)
		if err != nil {
			log.Fatalf("Failed to load model: %v", err)
		}
		if reg.Len() == 0 {
			fmt.Println("The model is empty. Run 'pyuml scan' first.")
			return
		}

		h := graph.Build(reg)
		for _, name := range reg.Names() {
			c, _ := reg.Get(name)
			fmt.Printf("class %s", name)
			if len(c.ParentNames) > 0 {
				fmt.Printf("(%s)", strings.Join(c.ParentNames, ", "))
			}
			fmt.Printf("  [%s]\n", origins[name])

			for _, attr := range c.Attributes.Names() {
				label, _ := c.Attributes.Get(attr)
				fmt.Printf("    - %s: %s\n", attr, label)
			}
			for _, m := range c.Methods {
				fmt.Printf("    + %s(%s) -> %s\n", m.Name, strings.Join(m.Params, ", "), m.ReturnType)
			}
			if subs := h.Subclasses(name); len(subs) > 0 {
				fmt.Printf("    subclasses: %s\n", strings.Join(subs, ", "))
			}
		}
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the stored class model as JSON",
	Run: func(cmd *cobra.Command, args []string) {
		reg := loadModel(context.Background())
		if reg.Len() == 0 {
			log.Fatalf("Export failed: %v", model.ErrEmptyModel)
		}
		if err := model.SaveJSON(exportPath, reg); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		fmt.Printf("💾 Model exported to %s.\n", exportPath)
	},
}

var diagramCmd = &cobra.Command{
	Use:   "diagram",
	Short: "Emit the class diagram as Graphviz DOT text",
	Run: func(cmd *cobra.Command, args []string) {
		reg := loadModel(context.Background())
		dot, err := diagram.Build(reg)
		if err != nil {
			log.Fatalf("Diagram failed: %v", err)
		}

		if diagramOut == "" {
			fmt.Print(dot)
			return
		}
		if err := os.WriteFile(diagramOut, []byte(dot), 0644); err != nil {
			log.Fatalf("Failed to write %s: %v", diagramOut, err)
		}
		fmt.Printf("✅ DOT written to %s.\n", diagramOut)
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the class diagram with Graphviz",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadCfg()
		ctx := context.Background()

		out := renderOut
		if out == "" {
			out = cfg.Diagram.Output
		}
		format := renderFormat
		if format == "" {
			format = cfg.Diagram.Format
		}
		rankdir := renderRankdir
		if rankdir == "" {
			rankdir = cfg.Diagram.RankDir
		}

		reg := loadModel(ctx)
		dot, err := diagram.Build(reg)
		if err != nil {
			log.Fatalf("Diagram failed: %v", err)
		}

		render := diagram.Graphviz(cfg.Diagram.DotBin, format, rankdir)
		if err := render(ctx, dot, out); err != nil {
			log.Fatalf("Render failed: %v", err)
		}
		fmt.Printf("🖼️  Diagram rendered to %s.\n", out)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Incrementally update the model from git changes",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadCfg()

		u := pipeline.NewUpdate(dbPath)
		u.ProjectRoot = cfg.Project.Root
		u.DiagramOut = cfg.Diagram.Output
		u.Render = diagram.Graphviz(cfg.Diagram.DotBin, cfg.Diagram.Format, cfg.Diagram.RankDir)

		if err := u.Run(context.Background(), updateForce); err != nil {
			log.Fatalf("Update failed: %v", err)
		}
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a project and rebuild the model and diagram on change",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadCfg()
		root := cfg.Project.Root
		if len(args) > 0 {
			root = args[0]
		}
		ctx := context.Background()
		render := diagram.Graphviz(cfg.Diagram.DotBin, cfg.Diagram.Format, cfg.Diagram.RankDir)

		rebuild := func() error {
			res, err := scanRoot(ctx, root)
			if err != nil {
				return err
			}
			dot, err := diagram.Build(res.Registry)
			if err != nil {
				return err
			}
			if err := render(ctx, dot, cfg.Diagram.Output); err != nil {
				return err
			}
			fmt.Printf("🔁 Rebuilt: %d classes, diagram at %s.\n", res.Registry.Len(), cfg.Diagram.Output)
			return nil
		}

		if err := rebuild(); err != nil {
			log.Printf("⚠️ Initial build failed: %v", err)
		}

		w, err := watcher.New(root, rebuild)
		if err != nil {
			log.Fatalf("Failed to create watcher: %v", err)
		}
		defer w.Close()

		fmt.Printf("👀 Watching %s for changes...\n", root)
		if err := w.Watch(ctx); err != nil {
			log.Fatalf("Watch failed: %v", err)
		}
	},
}
