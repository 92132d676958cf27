/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"photoframe/internal/backend"
	"photoframe/internal/config"
	"photoframe/internal/crash"
	"photoframe/internal/domain"
	"photoframe/internal/editor"
	"photoframe/internal/export"
	applog "photoframe/internal/log"
	"photoframe/internal/storage"
	"photoframe/internal/telemetry"
	"photoframe/internal/textlayout"
	"photoframe/internal/ui"
	"photoframe/internal/version"
	"photoframe/internal/workspace"
)

// errUsage makes run print usage and exit with 2.
var errUsage = errors.New("usage")

func usage(out io.Writer) {
	fmt.Fprintln(out, "PhotoFrame - frame and photo layout editor")
	fmt.Fprintf(out, "Version: %s\n", version.String())
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  photoframe version|-v|--version                 Show version")
	fmt.Fprintln(out, "  photoframe init <dir> [<w> <h>]                 Create a design at <dir>")
	fmt.Fprintln(out, "  photoframe add-frame <dir> circle <x> <y> <r>   Add an empty circle frame")
	fmt.Fprintln(out, "  photoframe add-frame <dir> rect <x> <y> <w> <h> Add an empty rectangle frame")
	fmt.Fprintln(out, "  photoframe bind <dir> <frameID> <imagefile>     Place an image inside a frame")
	fmt.Fprintln(out, "  photoframe unbind <dir> <frameID>               Remove a frame's image")
	fmt.Fprintln(out, "  photoframe layer <dir> <nodeID> front|back|forward|backward")
	fmt.Fprintln(out, "  photoframe delete <dir> <nodeID>                Delete a node (a frame takes its image along)")
	fmt.Fprintln(out, "  photoframe inspect <dir>                        Print stacking order and pairs")
	fmt.Fprintln(out, "  photoframe history <dir>                        List recorded history snapshots")
	fmt.Fprintln(out, "  photoframe export <dir> png|pdf [transparent]   Flatten the design into exports/")
	fmt.Fprintln(out, "  photoframe login <subject>                      Request and store a backend token")
	fmt.Fprintln(out, "  photoframe push <dir> <orderID> [baseVersion]   Upload the design for an order")
	fmt.Fprintln(out, "  photoframe pull <dir> <orderID>                 Download an order's design")
	fmt.Fprintln(out, "  photoframe publish <dir> <orderID> png|pdf      Upload a flattened export for an order")
	fmt.Fprintln(out, "  photoframe ui [<dir>]                           Launch desktop UI (build with -tags fyne)")
}

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	var dh *storage.DesignHandle
	defer crash.Guard(func() *storage.DesignHandle { return dh })
	code := run(os.Args[1:], os.Stdout, &dh)
	telemetry.Flush(context.Background())
	os.Exit(code)
}

// run executes one command. The open design, if any, is published through
// opened so a crash can autosave it.
func run(args []string, out io.Writer, opened **storage.DesignHandle) int {
	l := applog.WithComponent("cli")
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) == 0 {
		usage(out)
		return 0
	}
	cfg, token, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
		cfg = config.Defaults()
	}
	tcfg := telemetry.FromEnv()
	tcfg.OptIn = tcfg.OptIn || cfg.General.TelemetryOptIn
	telemetry.NewDefault(tcfg)
	c := &cli{cfg: cfg, token: token, out: out, log: l, opened: opened}

	switch args[0] {
	case "version", "--version", "-v":
		fmt.Fprintln(out, version.String())
		return 0
	case "ui":
		var dir string
		if len(args) >= 2 {
			dir = args[1]
		}
		err = ui.Run(dir)
	case "init":
		err = c.init(args[1:])
	case "add-frame":
		err = c.addFrame(args[1:])
	case "bind":
		err = c.bind(args[1:])
	case "unbind":
		err = c.unbind(args[1:])
	case "layer":
		err = c.layer(args[1:])
	case "delete":
		err = c.delete(args[1:])
	case "inspect":
		err = c.inspect(args[1:])
	case "history":
		err = c.history(args[1:])
	case "export":
		err = c.export(args[1:])
	case "login":
		err = c.login(args[1:])
	case "push":
		err = c.push(args[1:])
	case "pull":
		err = c.pull(args[1:])
	case "publish":
		err = c.publish(args[1:])
	default:
		usage(out)
		return 2
	}
	if errors.Is(err, errUsage) {
		fmt.Fprintf(out, "%s: missing or invalid arguments\n", args[0])
		usage(out)
		return 2
	}
	if err != nil {
		l.Error("command failed", slog.String("cmd", args[0]), slog.Any("err", err))
		fmt.Fprintln(out, "Error:", err)
		return 1
	}
	return 0
}

type cli struct {
	cfg    config.AppConfig
	token  string
	out    io.Writer
	log    *slog.Logger
	opened **storage.DesignHandle
}

func (c *cli) open(dir string) (*workspace.Workspace, error) {
	abs, _ := filepath.Abs(dir)
	c.log.Info("open design", slog.String("root", abs))
	ws, err := workspace.Open(abs, c.cfg)
	if err != nil {
		return nil, err
	}
	c.track(ws.Handle)
	if ws.Handle.FromBackup {
		fmt.Fprintln(c.out, "Warning: design.json was unreadable; loaded the latest backup.")
	}
	return ws, nil
}

func (c *cli) track(dh *storage.DesignHandle) {
	if c.opened != nil {
		c.track(dh)
	}
}

// edit opens dir, applies fn and saves when fn reports a change.
func (c *cli) edit(dir string, fn func(ws *workspace.Workspace) (bool, error)) error {
	ws, err := c.open(dir)
	if err != nil {
		return err
	}
	changed, err := fn(ws)
	if err != nil {
		return err
	}
	if !changed {
		fmt.Fprintln(c.out, "No change.")
		return nil
	}
	return ws.Save()
}

func floats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", errUsage, a)
		}
		out[i] = v
	}
	return out, nil
}

func (c *cli) init(args []string) error {
	if len(args) != 1 && len(args) != 3 {
		return errUsage
	}
	var w, h float64
	if len(args) == 3 {
		v, err := floats(args[1:])
		if err != nil {
			return err
		}
		w, h = v[0], v[1]
	}
	dir := args[0]
	if !filepath.IsAbs(dir) && filepath.Base(dir) == dir && c.cfg.General.DesignsDir != "" {
		dir = filepath.Join(c.cfg.General.DesignsDir, dir)
	}
	abs, _ := filepath.Abs(dir)
	ws, err := workspace.Create(abs, "", w, h, c.cfg)
	if err != nil {
		return err
	}
	c.track(ws.Handle)
	s := ws.Editor.Surface()
	fmt.Fprintf(c.out, "Created %gx%g design at %s\n", s.W, s.H, abs)
	return nil
}

func (c *cli) addFrame(args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	var want int
	switch args[1] {
	case "circle":
		want = 3
	case "rect":
		want = 4
	default:
		return errUsage
	}
	if len(args) != 2+want {
		return errUsage
	}
	v, err := floats(args[2:])
	if err != nil {
		return err
	}
	return c.edit(args[0], func(ws *workspace.Workspace) (bool, error) {
		var id string
		if args[1] == "circle" {
			id = ws.Editor.AddCircleFrame(v[0], v[1], v[2]).ID
		} else {
			id = ws.Editor.AddRectFrame(v[0], v[1], v[2], v[3]).ID
		}
		fmt.Fprintln(c.out, id)
		return true, nil
	})
}

func (c *cli) bind(args []string) error {
	if len(args) != 3 {
		return errUsage
	}
	return c.edit(args[0], func(ws *workspace.Workspace) (bool, error) {
		img, err := ws.BindFile(args[1], args[2])
		if err != nil {
			return false, err
		}
		telemetry.Event(telemetry.EventImageBound, map[string]any{"source": "cli", "scale": img.ScaleX})
		fmt.Fprintf(c.out, "%s bound to %s (scale %.3f)\n", img.ID, args[1], img.ScaleX)
		return true, nil
	})
}

func (c *cli) unbind(args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	return c.edit(args[0], func(ws *workspace.Workspace) (bool, error) {
		f, err := ws.Find(args[1])
		if err != nil {
			return false, err
		}
		return ws.Editor.Unbind(f), nil
	})
}

func (c *cli) layer(args []string) error {
	if len(args) != 3 {
		return errUsage
	}
	op, ok := editor.ParseLayerOp(args[2])
	if !ok {
		return errUsage
	}
	return c.edit(args[0], func(ws *workspace.Workspace) (bool, error) {
		n, err := ws.Find(args[1])
		if err != nil {
			return false, err
		}
		moved := ws.Editor.LayerNode(n, op)
		if moved {
			telemetry.Event(telemetry.EventLayer, map[string]any{"op": op.String(), "source": "cli"})
		}
		return moved, nil
	})
}

func (c *cli) delete(args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	return c.edit(args[0], func(ws *workspace.Workspace) (bool, error) {
		n, err := ws.Find(args[1])
		if err != nil {
			return false, err
		}
		return ws.Editor.Delete(n), nil
	})
}

func (c *cli) inspect(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	ws, err := c.open(args[0])
	if err != nil {
		return err
	}
	doc := ws.Handle.Doc
	fmt.Fprintf(c.out, "Design: %s\n", doc.Name)
	fmt.Fprintf(c.out, "Surface: %gx%g @%d dpi, %s\n", doc.Surface.Width, doc.Surface.Height, doc.Surface.DPI, doc.Surface.Background)
	if doc.Metadata.OrderID != "" {
		fmt.Fprintf(c.out, "Order: %s\n", doc.Metadata.OrderID)
	}
	fmt.Fprintf(c.out, "Assets: %d\n", len(doc.Assets))
	for _, line := range ws.Describe() {
		fmt.Fprintln(c.out, line)
	}
	res := ws.Editor.Resolve()
	if n := len(res.UnmatchedImages); n > 0 {
		fmt.Fprintf(c.out, "Images without a frame: %d\n", n)
	}
	if len(res.Degraded) > 0 {
		fmt.Fprintf(c.out, "Pairs matched by position only: %d\n", len(res.Degraded))
	}
	return nil
}

func (c *cli) history(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	ws, err := c.open(args[0])
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snaps, err := storage.ListSnapshots(ctx, ws.Handle, 0)
	if err != nil {
		return err
	}
	for _, s := range snaps {
		fmt.Fprintf(c.out, "%s %6d bytes\n", s.TS.Local().Format(time.DateTime), len(s.Blob))
	}
	exports, err := storage.ListExports(ctx, ws.Handle, 0)
	if err != nil {
		return err
	}
	for _, e := range exports {
		fmt.Fprintf(c.out, "%s export %s %s\n", e.TS.Local().Format(time.DateTime), e.Format, e.Path)
	}
	return nil
}

// renderOptions is the print rendering for ws, with the configured label font if any.
func (c *cli) renderOptions(ws *workspace.Workspace) export.RenderOptions {
	opt := export.RenderOptions{Scale: 1, Background: export.ParseBackground(ws.Handle.Doc.Surface.Background)}
	if path := c.cfg.Editor.LabelFont; path != "" {
		fonts := textlayout.NewFonts()
		if err := fonts.LoadFile("label", path); err != nil {
			c.log.Warn("label font unavailable", slog.String("path", path), slog.Any("err", err))
		} else {
			opt.Fonts = fonts
		}
	}
	return opt
}

func (c *cli) export(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return errUsage
	}
	ws, err := c.open(args[0])
	if err != nil {
		return err
	}
	opt := c.renderOptions(ws)
	if len(args) == 3 {
		opt.Background = export.ParseBackground(args[2])
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	path, err := export.ExportDesign(ctx, ws.Handle, ws.Editor.Store(), args[1], opt)
	if err != nil {
		return err
	}
	telemetry.Event(telemetry.EventExport, map[string]any{"format": args[1], "source": "cli"})
	fmt.Fprintln(c.out, path)
	return nil
}

// remote is the order-side design store, reached over HTTP or directly.
type remote interface {
	GetDesign(ctx context.Context, orderID string) (backend.StoredDesign, error)
	PutDesign(ctx context.Context, orderID string, doc domain.Document, baseVersion int64) (int64, error)
	AddExport(ctx context.Context, orderID, format string, data []byte) error
}

type httpRemote struct{ c *backend.Client }

func (h httpRemote) GetDesign(ctx context.Context, id string) (backend.StoredDesign, error) {
	return h.c.FetchDesign(ctx, id)
}

func (h httpRemote) PutDesign(ctx context.Context, id string, doc domain.Document, base int64) (int64, error) {
	return h.c.PushDesign(ctx, id, doc, base)
}

func (h httpRemote) AddExport(ctx context.Context, id, format string, data []byte) error {
	return h.c.UploadExport(ctx, id, format, data)
}

// dial talks to Postgres directly when a database URL is configured and to
// the HTTP order service otherwise.
func (c *cli) dial(ctx context.Context) (remote, func(), error) {
	b := c.cfg.Backend
	if b.DatabaseURL != "" {
		st, err := backend.OpenPG(ctx, b.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	}
	if b.BaseURL != "" {
		cl := backend.NewClientWith(b.BaseURL, c.token, b.Timeout(), b.TLSInsecure)
		return httpRemote{c: cl}, func() {}, nil
	}
	return nil, nil, errors.New("no backend configured: set PF_DATABASE_URL or PF_BACKEND_URL")
}

func (c *cli) login(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if c.cfg.Backend.BaseURL == "" {
		return errors.New("login needs PF_BACKEND_URL")
	}
	b := c.cfg.Backend
	cl := backend.NewClientWith(b.BaseURL, "", b.Timeout(), b.TLSInsecure)
	ctx, cancel := context.WithTimeout(context.Background(), b.Timeout())
	defer cancel()
	tok, err := cl.RequestToken(ctx, args[0])
	if err != nil {
		return err
	}
	if err := config.Save(c.cfg, tok); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Token stored in the system keyring.")
	return nil
}

func (c *cli) push(args []string) error {
	if len(args) != 2 && len(args) != 3 {
		return errUsage
	}
	var base int64
	if len(args) == 3 {
		v, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: bad base version %q", errUsage, args[2])
		}
		base = v
	}
	ws, err := c.open(args[0])
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	r, closeFn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	doc := ws.Editor.Serialize()
	doc.Metadata.OrderID = args[1]
	v, err := r.PutDesign(ctx, args[1], doc, base)
	if err != nil {
		return err
	}
	ws.Handle.Doc = doc
	if err := storage.Save(ws.Handle); err != nil {
		return err
	}
	telemetry.Event(telemetry.EventSync, map[string]any{"direction": "push"})
	fmt.Fprintf(c.out, "Pushed order %s at version %d\n", args[1], v)
	return nil
}

func (c *cli) pull(args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	r, closeFn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	sd, err := r.GetDesign(ctx, args[1])
	if err != nil {
		return err
	}
	abs, _ := filepath.Abs(args[0])
	dh, err := storage.Open(abs)
	if err != nil {
		if dh, err = storage.InitDesign(abs, sd.Document); err != nil {
			return err
		}
	} else {
		dh.Doc = sd.Document
		if err := storage.Save(dh); err != nil {
			return err
		}
	}
	c.track(dh)
	telemetry.Event(telemetry.EventSync, map[string]any{"direction": "pull"})
	fmt.Fprintf(c.out, "Pulled order %s version %d into %s\n", args[1], sd.Version, abs)
	return nil
}

func (c *cli) publish(args []string) error {
	if len(args) != 3 {
		return errUsage
	}
	ws, err := c.open(args[0])
	if err != nil {
		return err
	}
	opt := c.renderOptions(ws)
	data, err := export.Encode(args[2], ws.Editor.Store(), ws.Handle.Doc.Surface, ws.Handle.Doc.Name, opt)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	r, closeFn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	if err := r.AddExport(ctx, args[1], args[2], data); err != nil {
		return err
	}
	telemetry.Event(telemetry.EventExport, map[string]any{"format": args[2], "source": "publish"})
	fmt.Fprintf(c.out, "Published %s (%d bytes) for order %s\n", args[2], len(data), args[1])
	return nil
}
