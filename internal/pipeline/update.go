package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"pyuml/internal/analysis"
	"pyuml/internal/crawler"
	"pyuml/internal/diagram"
	"pyuml/internal/extractor"
	"pyuml/internal/git"
	"pyuml/internal/index"
	"pyuml/internal/model"
	"pyuml/internal/storage"
)

// Update is the staged incremental pass: git changes in, refreshed
// snapshot and diagram out.
type Update struct {
	DBPath      string
	ProjectRoot string
	BaseRef     string

	// DiagramOut, when set together with Render, refreshes the diagram
	// after a successful update.
	DiagramOut string
	Render     diagram.RenderFunc
}

type updatePlan struct {
	// Changed lists .py units still on disk, lexically sorted so
	// re-extraction keeps the last-unit-wins order stable.
	Changed    []string
	Deleted    []string
	FullResync bool
}

func NewUpdate(dbPath string) *Update {
	return &Update{
		DBPath:      dbPath,
		ProjectRoot: ".",
		BaseRef:     "HEAD",
	}
}

// Run executes the stages in order: detect changes, load the stored
// snapshot, re-extract the changed units, save, report impact, refresh
// the diagram. With force set, an empty change set triggers a full
// rebuild from the tree instead of a no-op.
func (u *Update) Run(ctx context.Context, force bool) error {
	plan, err := u.detectChangesStage(force)
	if err != nil {
		return err
	}
	if len(plan.Changed) == 0 && len(plan.Deleted) == 0 && !plan.FullResync {
		fmt.Println("✅ No changes detected.")
		return nil
	}

	store, err := storage.NewSQLiteStore(u.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	reg, origins, err := u.registryStage(ctx, store, plan)
	if err != nil {
		return err
	}

	if err := store.SaveSnapshot(ctx, reg, origins); err != nil {
		return fmt.Errorf("failed to save updated snapshot: %w", err)
	}

	if !plan.FullResync {
		u.impactStage(reg, origins, plan)
	}

	return u.diagramStage(ctx, reg)
}

func (u *Update) detectChangesStage(force bool) (*updatePlan, error) {
	changes, err := git.ChangedFiles(u.ProjectRoot, u.BaseRef)
	if err != nil {
		return nil, fmt.Errorf("failed to get git changes: %w", err)
	}

	plan := &updatePlan{}
	for _, change := range changes {
		if !strings.HasSuffix(change.Path, ".py") {
			continue
		}
		if change.Deleted {
			plan.Deleted = append(plan.Deleted, change.Path)
		} else {
			plan.Changed = append(plan.Changed, change.Path)
		}
	}
	sort.Strings(plan.Changed)

	plan.FullResync = force && len(plan.Changed) == 0 && len(plan.Deleted) == 0
	if plan.FullResync {
		fmt.Println("🧭 No git changes detected. Rebuilding the model from the current tree (--force).")
	} else if n := len(plan.Changed) + len(plan.Deleted); n > 0 {
		fmt.Printf("📝 Detected %d changed Python files.\n", n)
	}
	return plan, nil
}

func (u *Update) registryStage(ctx context.Context, store *storage.SQLiteStore, plan *updatePlan) (*model.Registry, model.OriginIndex, error) {
	if plan.FullResync {
		res, err := index.NewIndexer(crawler.New()).BuildRegistry(ctx, u.ProjectRoot)
		if err != nil {
			return nil, nil, fmt.Errorf("full rebuild failed: %w", err)
		}
		for _, skip := range res.Skipped {
			log.Printf("⚠️ Skipped %s: %s", skip.UnitPath, skip.Reason)
		}
		fmt.Printf("📊 Model rebuilt: %d classes from %d units.\n", res.Registry.Len(), res.Units)
		return res.Registry, res.Origins, nil
	}

	fmt.Println("🔄 Loading stored class model...")
	reg, origins, err := store.LoadSnapshot(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	removed, added, err := applyChanges(ctx, reg, origins, u.ProjectRoot, plan)
	if err != nil {
		return nil, nil, err
	}
	fmt.Printf("📊 Model update: %d classes removed, %d classes added/updated.\n", removed, added)
	return reg, origins, nil
}

// applyChanges re-extracts the changed units that still exist, drops
// classes whose defining unit was touched and did not reappear, and
// merges the fresh models into the loaded registry. A surviving class
// keeps its original position, so incremental updates do not reshuffle
// diagram output.
func applyChanges(ctx context.Context, reg *model.Registry, origins model.OriginIndex, root string, plan *updatePlan) (removed, added int, err error) {
	ext, err := extractor.New()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create extractor: %w", err)
	}
	cr := crawler.New()
	for _, path := range plan.Changed {
		src, err := cr.LoadSource(root, path)
		if err != nil {
			log.Printf("⚠️ Failed to read %s: %v", path, err)
			continue
		}
		if err := ext.RegisterUnit(ctx, src.Path, src.Text); err != nil {
			return 0, 0, err
		}
	}
	for _, skip := range ext.Skipped() {
		log.Printf("⚠️ Skipped %s: %s", skip.UnitPath, skip.Reason)
	}
	fresh := ext.Registry()

	// Classes that originated in a touched unit and did not come back
	// from re-extraction are gone; the rest are overwritten in place.
	for _, path := range append(append([]string(nil), plan.Deleted...), plan.Changed...) {
		for _, name := range origins.ClassesIn(path) {
			if _, ok := fresh.Get(name); ok {
				continue
			}
			reg.Delete(name)
			delete(origins, name)
			removed++
		}
	}

	for _, name := range fresh.Names() {
		c, _ := fresh.Get(name)
		reg.Put(name, c)
		origins[name] = ext.Origins()[name]
		added++
	}
	return removed, added, nil
}

func (u *Update) impactStage(reg *model.Registry, origins model.OriginIndex, plan *updatePlan) {
	fmt.Println("🔍 Analyzing impact...")
	changed := append(append([]string(nil), plan.Changed...), plan.Deleted...)
	report := analysis.NewAnalyzer(reg, origins).AnalyzeImpact(changed)
	fmt.Printf("  -> %d classes directly affected\n", len(report.DirectlyAffected))
	fmt.Printf("  -> %d classes indirectly affected (subclasses)\n", len(report.IndirectlyAffected))
}

func (u *Update) diagramStage(ctx context.Context, reg *model.Registry) error {
	if u.DiagramOut == "" || u.Render == nil {
		return nil
	}
	if reg.Len() == 0 {
		fmt.Println("⚠️ Model is empty, skipping diagram refresh.")
		return nil
	}

	fmt.Println("✍️  Refreshing diagram...")
	dot, err := diagram.Build(reg)
	if err != nil {
		return err
	}
	if err := u.Render(ctx, dot, u.DiagramOut); err != nil {
		return err
	}
	fmt.Printf("✅ Diagram written to %s.\n", u.DiagramOut)
	return nil
}
