package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	imagecomposer "github.com/menta2k/image-composer"
	"github.com/menta2k/image-composer/internal/api"
	"github.com/menta2k/image-composer/internal/config"
	"github.com/menta2k/image-composer/internal/utils"
	"github.com/menta2k/image-composer/pkg/exporter"
)

func usage() {
	name := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, `usage:
  %[1]s render -style fb-wide -background Sunset -border blue -text "hi" [-upload photo.jpg -drag 10,20] [-o out.png|out.pdf]
  %[1]s serve [-addr :8080]
  %[1]s config [-o path]
  %[1]s version
`, name)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "render":
		runRender(args)
	case "serve":
		runServe(args)
	case "config":
		runConfig(args)
	case "version":
		fmt.Println(imagecomposer.GetVersion())
	default:
		usage()
	}
}

// loadConfig reads path, or the default config file if it exists, or falls
// back to built-in defaults.
func loadConfig(path string) *config.Config {
	if path == "" {
		if p := config.GetConfigPath(); utils.FileExists(p) {
			path = p
		}
	}
	if path == "" {
		return config.Default()
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func parsePoint(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want dx,dy: %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func runRender(args []string) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	var cfgPath, assetsRoot, styleID, background, border, text, uploadPath, drag, out string
	fs.StringVar(&cfgPath, "config", "", "config file (default ~/.config/image-composer/config.json if present)")
	fs.StringVar(&assetsRoot, "assets", "", "asset directory or http(s) base URL (overrides config)")
	fs.StringVar(&styleID, "style", "", "output style: fb-square|fb-wide|sticker|card")
	fs.StringVar(&background, "background", "", "preset background name")
	fs.StringVar(&border, "border", "", "border color")
	fs.StringVar(&text, "text", "", "custom text")
	fs.StringVar(&uploadPath, "upload", "", "uploaded background image")
	fs.StringVar(&drag, "drag", "", "drag the upload by dx,dy preview pixels before cropping")
	fs.StringVar(&out, "o", "", "output file; the extension picks png|jpg|webp|pdf")
	fs.Parse(args)

	cfg := loadConfig(cfgPath)
	if assetsRoot != "" {
		cfg.Assets.Root = assetsRoot
	}

	s, err := imagecomposer.NewFromConfig(cfg, log.Default())
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		log.Printf("Warning: default assets: %v", err)
	}
	if styleID != "" {
		if err := s.SetStyle(ctx, styleID); err != nil {
			log.Fatal(err)
		}
	}
	if background != "" {
		if err := s.SetBackground(ctx, background); err != nil {
			log.Fatal(err)
		}
	}
	if border != "" {
		if err := s.SetBorder(ctx, border); err != nil {
			log.Fatal(err)
		}
	}
	s.SetText(text)

	if uploadPath != "" {
		f, err := os.Open(uploadPath)
		if err != nil {
			log.Fatal(err)
		}
		info, err := s.Upload(ctx, filepath.Base(uploadPath), "", f)
		f.Close()
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("upload %dx%d ratio=%.3f at %.1f,%.1f", info.Width, info.Height, info.Ratio, info.Position.X, info.Position.Y)

		if drag != "" {
			dx, dy, err := parsePoint(drag)
			if err != nil {
				log.Fatal(err)
			}
			if _, err := s.Drag(dx, dy); err != nil {
				log.Fatal(err)
			}
		}
		if _, err := s.Commit(); err != nil {
			log.Fatal(err)
		}
	}

	snap := s.Snapshot()
	if out == "" {
		out = utils.OutputFilename(cfg.Export.OutputDir, snap.Style.ID, snap.Text, string(exporter.PNG))
	}
	format, err := exporter.ParseFormat(utils.GetFileExtension(out))
	if err != nil {
		log.Fatal(err)
	}
	if err := utils.EnsureDir(filepath.Dir(out)); err != nil {
		log.Fatal(err)
	}

	f, err := os.Create(out)
	if err != nil {
		log.Fatal(err)
	}
	if err := s.Export(f, format); err != nil {
		f.Close()
		log.Fatalf("export failed: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatal(err)
	}

	if st, err := os.Stat(out); err == nil {
		log.Printf("wrote %s (%s, %s)", out, snap.Style.Name, utils.FormatFileSize(st.Size()))
	}
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var cfgPath, assetsRoot, addr string
	fs.StringVar(&cfgPath, "config", "", "config file (default ~/.config/image-composer/config.json if present)")
	fs.StringVar(&assetsRoot, "assets", "", "asset directory or http(s) base URL (overrides config)")
	fs.StringVar(&addr, "addr", "", "listen address (overrides config)")
	fs.Parse(args)

	cfg := loadConfig(cfgPath)
	if assetsRoot != "" {
		cfg.Assets.Root = assetsRoot
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	s, err := imagecomposer.NewFromConfig(cfg, log.Default())
	if err != nil {
		log.Fatal(err)
	}
	// best-effort: a missing default asset surfaces on the first render
	if err := s.Start(context.Background()); err != nil {
		log.Println("Warning: failed to load default assets:", err)
	}

	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()
	r.MaxMultipartMemory = int64(cfg.Server.MaxUploadMB) << 20
	api.RegisterRoutes(r, api.NewHandler(s))

	log.Printf("starting server on %s (assets %s, placement %s)", cfg.Server.Addr, cfg.Assets.Root, cfg.Placement.Backend)
	if err := r.Run(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func runConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	var out string
	fs.StringVar(&out, "o", config.GetConfigPath(), "where to write the default configuration")
	fs.Parse(args)

	if utils.FileExists(out) {
		log.Fatalf("%s already exists", out)
	}
	if err := config.Default().SaveToFile(out); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s", out)
}
