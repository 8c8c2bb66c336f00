package domain

import (
	"context"
	"fmt"
	"log/slog"

	"modhook.dev/pkg/modhook/internal/adapter"
	m "modhook.dev/pkg/modhook/internal/model"
)

// WorkflowConfig names the files and symbols the workflow operates on.
type WorkflowConfig struct {
	ModuleName       string
	LoaderModuleName string
	BackupSuffix     string
	Patch            PatchConfig
	Detect           DetectConfig
}

// TargetArgs selects the directory holding the host module.
type TargetArgs struct {
	Dir             m.Path
	RequiredVersion string
	MismatchMessage string
}

// UpdateArgs extends TargetArgs with a confirmation callback. A nil Confirm
// proceeds without asking.
type UpdateArgs struct {
	TargetArgs
	Confirm func(det m.Detection) (bool, error)
}

// InspectArgs selects the live module or its backup.
type InspectArgs struct {
	TargetArgs
	Backup bool
}

// LoadArgs selects the plugin directory and loader options.
type LoadArgs struct {
	Dir     m.Path
	Options LoadOptions
}

// InstallResult describes the outcome of an install.
type InstallResult struct {
	Before   m.Detection
	Injected bool
	Backup   m.File
	Location string
	Strategy string
	Anchor   Anchor
}

// UpdateResult describes the outcome of an update.
type UpdateResult struct {
	Before    m.Detection
	Cancelled bool
	Restored  m.File
	Install   InstallResult
}

// Updated reports whether the hook was reinstalled.
func (r UpdateResult) Updated() bool { return r.Install.Injected }

// RestoreResult describes the outcome of a restore.
type RestoreResult struct {
	Before   m.Detection
	Restored bool
	File     m.File
}

// Workflow exposes the operator-facing operations.
type Workflow interface {
	Install(ctx context.Context, args TargetArgs) (InstallResult, error)
	Update(ctx context.Context, args UpdateArgs) (UpdateResult, error)
	Restore(ctx context.Context, args TargetArgs) (RestoreResult, error)
	Detect(ctx context.Context, args TargetArgs) (m.Detection, error)
	Inspect(ctx context.Context, args InspectArgs) ([]TypeSummary, error)
	Diff(ctx context.Context, args TargetArgs) (string, error)
	LoadPlugins(ctx context.Context, args LoadArgs) (m.LoadReport, error)
}

type workflow struct {
	adapter.FSAdapter
	modules adapter.ModuleFileAdapter
	Patcher
	BackupManager
	Loader
	config WorkflowConfig
}

// NewWorkflow creates a Workflow with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.FSAdapter,
	modules adapter.ModuleFileAdapter,
	patcher Patcher,
	backups BackupManager,
	loader Loader,
	config WorkflowConfig,
) Workflow {
	return &workflow{
		FSAdapter:     fsAdapter,
		modules:       modules,
		Patcher:       patcher,
		BackupManager: backups,
		Loader:        loader,
		config:        config,
	}
}

type targetPaths struct {
	module m.Path
	backup m.Path
	loader m.Path
}

// resolve checks that the directory, the host module and the loader module
// exist.
func (w *workflow) resolve(dir m.Path, needLoader bool) (targetPaths, error) {
	if info, err := w.FileInfo(dir); err != nil || !info.IsDir() {
		return targetPaths{}, &m.TargetMissingError{Path: dir}
	}

	paths := targetPaths{
		module: w.JoinPath(string(dir), w.config.ModuleName),
		loader: w.JoinPath(string(dir), w.config.LoaderModuleName),
	}
	paths.backup = paths.module + m.Path(w.config.BackupSuffix)

	if !w.Exists(paths.module) {
		return targetPaths{}, &m.TargetMissingError{Path: paths.module}
	}

	if needLoader && !w.Exists(paths.loader) {
		return targetPaths{}, &m.LoaderMissingError{Path: paths.loader}
	}

	return paths, nil
}

// load reads the host module, detects the hook and enforces the version
// requirement.
func (w *workflow) load(ctx context.Context, args TargetArgs, needLoader bool) (targetPaths, *m.Module, m.Detection, error) {
	if err := ctx.Err(); err != nil {
		return targetPaths{}, nil, m.Detection{}, err
	}

	paths, err := w.resolve(args.Dir, needLoader)
	if err != nil {
		return targetPaths{}, nil, m.Detection{}, err
	}

	mod, err := w.modules.Load(paths.module)
	if err != nil {
		return targetPaths{}, nil, m.Detection{}, err
	}

	det := Detect(mod, w.config.Detect)
	slog.Debug("detected injection state", "module", paths.module, "state", det.State.Kind.String(),
		"location", det.State.Location, "version", det.HostVersion)

	if err := CheckHostVersion(det, args.RequiredVersion, args.MismatchMessage); err != nil {
		return targetPaths{}, nil, m.Detection{}, err
	}

	return paths, mod, det, nil
}

func (w *workflow) Install(ctx context.Context, args TargetArgs) (InstallResult, error) {
	paths, mod, det, err := w.load(ctx, args, true)
	if err != nil {
		return InstallResult{}, err
	}

	if det.State.Injected() {
		slog.Info("module already injected", "state", det.State.Kind.String(), "location", det.State.Location)
		return InstallResult{Before: det, Location: det.State.Location}, nil
	}

	hook, plan, err := w.plan(paths, mod)
	if err != nil {
		return InstallResult{Before: det}, err
	}

	backup, err := w.Backup(paths.module, paths.backup)
	if err != nil {
		return InstallResult{Before: det}, fmt.Errorf("backup: %w", err)
	}

	result, err := w.apply(paths, mod, hook, plan, backup)
	result.Before = det

	return result, err
}

// plan resolves the hook in the loader module and the insertion point in mod.
// Nothing on disk changes.
func (w *workflow) plan(paths targetPaths, mod *m.Module) (m.MethodRef, PatchPlan, error) {
	loaderMod, err := w.modules.Load(paths.loader)
	if err != nil {
		return m.MethodRef{}, PatchPlan{}, fmt.Errorf("load plugin loader module: %w", err)
	}

	hook, err := ResolveHook(loaderMod, w.config.Detect.Hook)
	if err != nil {
		return m.MethodRef{}, PatchPlan{}, err
	}

	plan, err := w.Prepare(mod)
	if err != nil {
		return m.MethodRef{}, PatchPlan{}, err
	}

	return hook, plan, nil
}

// apply patches mod and saves it over the live module.
func (w *workflow) apply(paths targetPaths, mod *m.Module, hook m.MethodRef, plan PatchPlan, backup m.File) (InstallResult, error) {
	if err := w.Apply(mod, plan, hook, paths.module); err != nil {
		return InstallResult{Backup: backup}, err
	}

	return InstallResult{
		Injected: true,
		Backup:   backup,
		Location: plan.Located.Method.FullName(),
		Strategy: plan.Located.Strategy.String(),
		Anchor:   plan.Anchor,
	}, nil
}

// Update plans the new injection against the backup held in memory and then
// writes the patched backup over the live module in one atomic save. Any
// failure before that save leaves the live module as it was.
func (w *workflow) Update(ctx context.Context, args UpdateArgs) (UpdateResult, error) {
	paths, _, det, err := w.load(ctx, args.TargetArgs, true)
	if err != nil {
		return UpdateResult{}, err
	}

	result := UpdateResult{Before: det}

	if !det.State.Injected() {
		return result, nil
	}

	if args.Confirm != nil {
		ok, err := args.Confirm(det)
		if err != nil {
			return result, fmt.Errorf("confirm update: %w", err)
		}

		if !ok {
			result.Cancelled = true
			return result, nil
		}
	}

	original, backup, err := w.Original(paths.backup)
	if err != nil {
		return result, err
	}

	before := Detect(original, w.config.Detect)

	hook, plan, err := w.plan(paths, original)
	if err != nil {
		return result, err
	}

	result.Restored = backup
	result.Install, err = w.apply(paths, original, hook, plan, backup)
	result.Install.Before = before

	if err == nil {
		slog.Info("module updated", "from", det.State.Location, "to", result.Install.Location)
	}

	return result, err
}

func (w *workflow) Restore(ctx context.Context, args TargetArgs) (RestoreResult, error) {
	paths, _, det, err := w.load(ctx, args, false)
	if err != nil {
		return RestoreResult{}, err
	}

	result := RestoreResult{Before: det}

	if !det.State.Injected() {
		return result, nil
	}

	file, err := w.BackupManager.Restore(paths.module, paths.backup)
	if err != nil {
		return result, err
	}

	result.Restored = true
	result.File = file

	return result, nil
}

func (w *workflow) Detect(ctx context.Context, args TargetArgs) (m.Detection, error) {
	_, _, det, err := w.load(ctx, TargetArgs{Dir: args.Dir}, false)

	return det, err
}

func (w *workflow) Inspect(ctx context.Context, args InspectArgs) ([]TypeSummary, error) {
	paths, mod, _, err := w.load(ctx, TargetArgs{Dir: args.Dir}, false)
	if err != nil {
		return nil, err
	}

	if args.Backup {
		if !w.Exists(paths.backup) {
			return nil, &m.BackupMissingError{Path: paths.backup}
		}

		if mod, err = w.modules.Load(paths.backup); err != nil {
			return nil, err
		}
	}

	return Summarize(mod), nil
}

func (w *workflow) Diff(ctx context.Context, args TargetArgs) (string, error) {
	paths, mod, _, err := w.load(ctx, TargetArgs{Dir: args.Dir}, false)
	if err != nil {
		return "", err
	}

	if !w.Exists(paths.backup) {
		return "", &m.BackupMissingError{Path: paths.backup}
	}

	original, err := w.modules.Load(paths.backup)
	if err != nil {
		return "", err
	}

	diff, err := DiffListings(w.config.ModuleName+w.config.BackupSuffix, original, w.config.ModuleName, mod)
	if err != nil {
		return "", fmt.Errorf("diff listings: %w", err)
	}

	return diff, nil
}

func (w *workflow) LoadPlugins(ctx context.Context, args LoadArgs) (m.LoadReport, error) {
	if err := ctx.Err(); err != nil {
		return m.LoadReport{}, err
	}

	return w.LoadAll(args.Dir, args.Options), nil
}
