// Package main is the Kabati CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mavazi/kabati/internal/cli"
	"github.com/mavazi/kabati/internal/closet"
	"github.com/mavazi/kabati/internal/config"
	"github.com/mavazi/kabati/internal/embedding"
	"github.com/mavazi/kabati/internal/ingest"
	"github.com/mavazi/kabati/internal/keyword"
	"github.com/mavazi/kabati/internal/models"
	"github.com/mavazi/kabati/internal/search"
	"github.com/mavazi/kabati/internal/server"
	"github.com/mavazi/kabati/internal/storage"
	"github.com/mavazi/kabati/internal/watcher"
	"github.com/mavazi/kabati/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kabati/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "kabati server" from the project dir uses the project's
// config (including debug). Returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "upload":
		runUpload()
	case "items":
		runItems()
	case "delete":
		runDelete()
	case "import":
		runImport()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kabati version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (imports, index builds, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	var watchSvc *watcher.Watcher
	var watchCancel context.CancelFunc
	if len(cfg.Import.Directories) > 0 {
		importer := ingest.NewImporter(components.Ingestor, cfg.Import.UserID)
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc = watcher.NewWatcher(
			cfg.Import.Directories,
			cfg.Import.Extensions,
			func(path string) {
				if _, err := importer.ImportFile(context.Background(), path); err != nil {
					logger.Warn("drop-directory import failed", zap.String("path", path), zap.Error(err))
				}
			},
			watchOpts...,
		)
		var watchCtx context.Context
		watchCtx, watchCancel = context.WithCancel(context.Background())
		defer watchCancel()
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start import watcher", zap.Error(err))
		}
		watchSvc.SyncExistingFiles()
	}

	srv := server.NewServer(
		components.Searcher,
		components.Ingestor,
		components.Storage,
		components.Metadata,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watchSvc != nil {
		watchCancel()
		watchSvc.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct storage mode)")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = use direct storage when server is not running)`)
	userID := fs.String("user", "", "user whose wardrobe to search (required)")
	topK := fs.Int("top-k", 0, "number of results (0 = server default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if *userID == "" || fs.NArg() < 1 {
		fmt.Println("Usage: kabati search --user <user-id> [flags] <image-file>")
		os.Exit(1)
	}
	imagePath := fs.Arg(0)

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	imageBytes, err := os.ReadFile(imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read image: %v\n", err)
		os.Exit(1)
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		// Use the HTTP API when the server is running (avoids the
		// Bleve/SQLite lock conflict).
		response, err = searchViaHTTP(*serverURL, *userID, imagePath, imageBytes, *topK)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		components, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		response, err = components.Searcher.Search(context.Background(), *userID, imageBytes, *topK)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	}

	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// postImage uploads an image as a multipart "file" part to the given endpoint.
func postImage(endpoint, userID, filename string, imageBytes []byte) (*http.Response, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(imageBytes); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-ID", userID)
	return http.DefaultClient.Do(req)
}

func searchViaHTTP(serverURL, userID, filename string, imageBytes []byte, topK int) (*models.SearchResponse, error) {
	endpoint := serverURL + "/api/v1/wardrobe/visual-search"
	if topK > 0 {
		endpoint += "?top_k=" + strconv.Itoa(topK)
	}
	resp, err := postImage(endpoint, userID, filename, imageBytes)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runUpload() {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	userID := fs.String("user", "", "owning user (required)")
	mitumba := fs.Bool("mitumba", false, "mark the item as a second-hand (mitumba) find")
	platform := fs.String("platform", "", "source platform (e.g. gikomba, jumia)")
	_ = fs.Parse(os.Args[2:])

	if *userID == "" || fs.NArg() < 1 {
		fmt.Println("Usage: kabati upload --user <user-id> [flags] <image-file>")
		os.Exit(1)
	}
	imagePath := fs.Arg(0)
	imageBytes, err := os.ReadFile(imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read image: %v\n", err)
		os.Exit(1)
	}

	endpoint := *serverURL + "/api/v1/wardrobe/items?is_mitumba=" + strconv.FormatBool(*mitumba)
	if *platform != "" {
		endpoint += "&source_platform=" + *platform
	}
	resp, err := postImage(endpoint, *userID, imagePath, imageBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Upload failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var item models.WardrobeItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Item created: %s (%s)\n", item.ID, cli.DescribeItem(item.Category, item.Color, item.Style, item.Material))
}

func runItems() {
	fs := flag.NewFlagSet("items", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	userID := fs.String("user", "", "owning user (required)")
	query := fs.String("q", "", "metadata keyword filter (e.g. \"denim jacket\")")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if *userID == "" {
		fmt.Println("Usage: kabati items --user <user-id> [flags]")
		os.Exit(1)
	}
	endpoint := *serverURL + "/api/v1/wardrobe/items"
	if *query != "" {
		endpoint += "?q=" + *query
	}
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("X-User-ID", *userID)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "List failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var out struct {
		Items []*models.WardrobeItem `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	format := cli.OutputText
	if *outputFormat == "json" {
		format = cli.OutputJSON
	}
	if err := cli.WriteItems(os.Stdout, out.Items, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	userID := fs.String("user", "", "owning user ID")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 || *userID == "" {
		fmt.Println("Usage: kabati delete --user <id> [flags] <item-id>")
		os.Exit(1)
	}
	itemID := fs.Arg(0)

	req, err := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/wardrobe/items/"+itemID, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("X-User-ID", *userID)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Delete failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	fmt.Printf("Item deleted: %s\n", itemID)
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	userID := fs.String("user", "", "owning user (defaults to import.user_id from config)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kabati import [flags] <image-file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	owner := *userID
	if owner == "" {
		owner = cfg.Import.UserID
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	importer := ingest.NewImporter(components.Ingestor, owner)
	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		imported := 0
		entries, err := os.ReadDir(path)
		if err != nil {
			fmt.Printf("Failed to read directory: %v\n", err)
			os.Exit(1)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			item, err := importer.ImportFile(ctx, filepath.Join(path, entry.Name()))
			if err != nil {
				logger.Warn("import skipped", zap.String("file", entry.Name()), zap.Error(err))
				continue
			}
			fmt.Printf("Imported %s as %s\n", entry.Name(), item.ID)
			imported++
		}
		fmt.Printf("Imported %d item(s) from %s\n", imported, path)
		return
	}
	item, err := importer.ImportFile(ctx, path)
	if err != nil {
		fmt.Printf("Import failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Item imported: %s (%s)\n", item.ID, cli.DescribeItem(item.Category, item.Color, item.Style, item.Material))
}

// statusResponse is the shape of the GET /api/v1/status response.
type statusResponse struct {
	Items          int64                  `json:"items"`
	IndexedItems   uint64                 `json:"indexed_items"`
	DiskUsageBytes *int64                 `json:"disk_usage_bytes,omitempty"`
	Config         map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Status failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("items:            %d   # stored wardrobe items\n", status.Items)
		fmt.Printf("indexed_items:    %d   # items in the metadata index\n", status.IndexedItems)
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes: %d   # storage + indices on disk\n", *status.DiskUsageBytes)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Storage   storage.Storage
	Extractor embedding.Extractor
	Metadata  keyword.MetadataIndex
	Searcher  *search.Service
	Ingestor  *ingest.Ingestor
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Extractor != nil {
		_ = c.Extractor.Close()
	}
	if c.Metadata != nil {
		_ = c.Metadata.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var extractor embedding.Extractor
	onnxExtractor, err := embedding.NewONNXExtractor(
		cfg.Embedding.ModelPath,
		cfg.Embedding.Dimensions,
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		logger.Warn("ONNX model unavailable, using mock extractor", zap.Error(err))
		extractor = embedding.NewMockExtractor(cfg.Embedding.Dimensions)
	} else {
		extractor = onnxExtractor
	}

	metadata, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metadata index: %w", err)
	}

	closetOpts := []closet.BuilderOption{}
	ingestOpts := []ingest.Option{}
	if debug {
		closetOpts = append(closetOpts, closet.WithLogger(logger))
		ingestOpts = append(ingestOpts, ingest.WithLogger(logger))
	}
	builder := closet.NewBuilder(store, cfg.Embedding.Dimensions, cfg.Search.MaxIndexItems, closetOpts...)
	searcher := search.NewService(store, extractor, builder, &cfg.Search, logger)
	ingestor := ingest.NewIngestor(store, extractor, metadata, ingestOpts...)

	return &Components{
		Storage:   store,
		Extractor: extractor,
		Metadata:  metadata,
		Searcher:  searcher,
		Ingestor:  ingestor,
	}, nil
}

func printUsage() {
	fmt.Println(`kabati - Visual wardrobe search service

Usage:
  kabati server [flags]                    Start the HTTP server
  kabati search --user <id> <image>        Find similar items in a user's wardrobe
  kabati upload --user <id> <image>        Add an item to a user's wardrobe
  kabati items --user <id> [flags]         List a user's wardrobe items
  kabati delete --user <id> <item-id>      Delete a wardrobe item
  kabati import [flags] <path>             Import photos directly into storage
  kabati status [flags]                    Show item counts and disk usage
  kabati version                           Show version
  kabati help                              Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kabati/config.yaml)
  --debug            Enable debug logging (imports, index builds, etc.)

Search Flags:
  --user string      User whose wardrobe to search (required)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --top-k int        Number of results (0 = server default)
  --output string    Output format: text or json (default: text)

Upload Flags:
  --user string      Owning user (required)
  --mitumba          Mark the item as a second-hand (mitumba) find
  --platform string  Source platform (e.g. gikomba, jumia)

Items Flags:
  --user string      Owning user (required)
  --q string         Metadata keyword filter
  --output string    Output format: text or json (default: text)

Import Flags:
  --config string    Config file path
  --user string      Owning user (defaults to import.user_id from config)

Examples:
  kabati server
  kabati search --user wanjiku shirt.jpg
  kabati search --user wanjiku --top-k 5 --output json shirt.jpg
  kabati upload --user wanjiku --mitumba --platform gikomba jacket.jpg
  kabati items --user wanjiku --q "denim"
  kabati import --user wanjiku ~/Pictures/wardrobe
  kabati status`)
}
