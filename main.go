package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pdf-translator/internal/logger"
	"pdf-translator/internal/types"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

//go:embed all:frontend/dist
var assets embed.FS

// Command line flags
var (
	pdfFlag    = flag.String("pdf", "", "Local PDF file path to translate")
	urlFlag    = flag.String("url", "", "URL of a PDF document to fetch and translate")
	sourceFlag = flag.String("source", "", "Source language tag (default from config)")
	targetFlag = flag.String("target", "", "Target language tag (default from config)")
	outputFlag = flag.String("output", "", "Output path for the translated PDF (CLI mode)")
	cliFlag    = flag.Bool("cli", false, "Run in CLI mode without GUI")
)

// printHelp displays the help information for command line usage.
func printHelp() {
	fmt.Println("PDF Translator - translate PDF documents while preserving layout")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pdf-translator [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --pdf <PATH>       Local PDF file path")
	fmt.Println("  --url <URL>        URL of a PDF document")
	fmt.Println("  --source <TAG>     Source language tag (e.g. en)")
	fmt.Println("  --target <TAG>     Target language tag (e.g. es)")
	fmt.Println("  --output <PATH>    Output path for the translated PDF (CLI mode)")
	fmt.Println("  --cli              Run in CLI mode without GUI")
	fmt.Println("  -h, --help         Show this help")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  pdf-translator                                    # start the GUI")
	fmt.Println("  pdf-translator --pdf /path/to/paper.pdf --cli")
	fmt.Println("  pdf-translator --url https://example.org/paper.pdf --cli --target fr")
	fmt.Println()
	fmt.Println("Without flags the program starts the graphical interface.")
	fmt.Println("With --pdf or --url plus --cli the document is translated on the")
	fmt.Println("command line and written next to the input unless --output is set.")
}

// getInputFromFlags returns the input string from command line flags.
// Returns empty string if no input flag is provided.
// Returns an error if multiple input flags are provided.
func getInputFromFlags() (string, error) {
	count := 0
	var input string

	if *pdfFlag != "" {
		count++
		input = *pdfFlag
	}
	if *urlFlag != "" {
		count++
		input = *urlFlag
	}

	if count > 1 {
		return "", fmt.Errorf("only one input source may be given (--pdf or --url)")
	}
	return input, nil
}

// DocumentHandler handles requests for PDF files from the local filesystem,
// so the frontend viewer can load downloaded documents.
type DocumentHandler struct{}

func (h *DocumentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/doc/") {
		http.NotFound(w, r)
		return
	}

	filePath := strings.TrimPrefix(r.URL.Path, "/doc/")
	filePath = strings.ReplaceAll(filePath, "%20", " ")
	filePath = strings.ReplaceAll(filePath, "%3A", ":")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	http.ServeFile(w, r, filePath)
}

func main() {
	flag.Usage = printHelp
	flag.Parse()

	input, err := getInputFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		fmt.Println()
		printHelp()
		os.Exit(1)
	}

	if *cliFlag {
		if input == "" {
			fmt.Fprintln(os.Stderr, "error: CLI mode requires --pdf or --url")
			os.Exit(1)
		}
		runTranslationCLI(input, *sourceFlag, *targetFlag, *outputFlag)
		return
	}

	app := NewApp()
	app.SetWailsRuntime(true)

	// Wrap the startup function to handle command line input
	startupFunc := func(ctx context.Context) {
		app.startup(ctx)

		if input != "" {
			// Use goroutine to avoid blocking the startup
			go func() {
				if _, err := app.UploadDocument(input); err != nil {
					runtime.EventsEmit(ctx, EventTranslationFailed, err.Error())
					fmt.Fprintf(os.Stderr, "failed to load document: %v\n", err)
				}
			}()
		}
	}

	err = wails.Run(&options.App{
		Title:  "PDF Translator",
		Width:  1024,
		Height: 768,
		AssetServer: &assetserver.Options{
			Assets:  assets,
			Handler: &DocumentHandler{},
		},
		BackgroundColour: &options.RGBA{R: 27, G: 38, B: 54, A: 1},
		OnStartup:        startupFunc,
		OnShutdown:       app.shutdown,
		OnBeforeClose: func(ctx context.Context) (prevent bool) {
			if app.IsTranslating() {
				result, err := runtime.MessageDialog(ctx, runtime.MessageDialogOptions{
					Type:          runtime.QuestionDialog,
					Title:         "Confirm exit",
					Message:       "A translation is in progress. Quit anyway?\nThe current request will be discarded.",
					Buttons:       []string{"Cancel", "Quit"},
					DefaultButton: "Cancel",
					CancelButton:  "Cancel",
				})
				if err != nil {
					return false
				}
				if result == "Cancel" {
					return true
				}
			}
			return false
		},
		Bind: []interface{}{
			app,
		},
	})

	if err != nil {
		logger.Error("failed to start application", err)
	}
}

// runTranslationCLI translates a document in CLI mode without GUI.
func runTranslationCLI(input, sourceLang, targetLang, outputPath string) {
	// Initialize logger with console output for CLI mode
	logger.Init(&logger.Config{
		LogFilePath:   "pdf-translator-cli.log",
		Level:         logger.LevelInfo,
		EnableConsole: true,
	})
	defer logger.Close()

	fmt.Println("=== PDF Translation (CLI mode) ===")
	fmt.Printf("Input: %s\n", input)

	app := NewApp()
	app.startup(context.Background())

	if app.config != nil {
		fmt.Printf("Backend: %s\n", app.config.GetBackendBaseURL())
		if sourceLang == "" {
			sourceLang = app.config.GetSourceLang()
		}
		if targetLang == "" {
			targetLang = app.config.GetTargetLang()
		}
	}
	fmt.Printf("Languages: %s -> %s\n", sourceLang, targetLang)

	fmt.Println("Loading document...")
	snap, err := app.UploadDocument(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load document: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded: %s (session %s)\n", snap.OriginalFilename, snap.SessionID)

	fmt.Println("Translating...")
	start := time.Now()
	snap, err = app.TranslateDocument(sourceLang, targetLang)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: translation failed: %v\n", err)
		app.shutdown(context.Background())
		os.Exit(1)
	}
	fmt.Printf("Translated in %v\n", time.Since(start).Round(time.Millisecond))

	if outputPath == "" {
		base := strings.TrimSuffix(snap.OriginalFilename, filepath.Ext(snap.OriginalFilename))
		outputPath = base + "_" + targetLang + ".pdf"
	}

	fmt.Println("Downloading translated document...")
	if err := app.DownloadDocument(string(types.KindTranslated), outputPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: download failed: %v\n", err)
		app.shutdown(context.Background())
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("=== Translation complete ===")
	fmt.Printf("Output: %s\n", outputPath)

	app.shutdown(context.Background())
}
