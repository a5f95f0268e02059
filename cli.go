package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"

	"overlay-gpt/layout"
	"overlay-gpt/translate"
)

var RootCmd = &cobra.Command{
	Use:   "overlay-gpt",
	Short: "OCR line reconstruction and translated layout boxes for image overlays",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ll, err := cmd.Flags().GetString("log-level")
		if err != nil {
			return err
		}
		// .env is loaded after flag defaults are computed
		if env := os.Getenv("LOG_LEVEL"); env != "" && !cmd.Flags().Changed("log-level") {
			ll = env
		}
		return initLogger(ll)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServer(ctx)
	},
}

var boxesCmd = &cobra.Command{
	Use:   "boxes",
	Short: "Build layout boxes from a local OCR result and its translation",
	RunE: func(cmd *cobra.Command, args []string) error {
		ocrPath, _ := cmd.Flags().GetString("ocr")
		translatedPath, _ := cmd.Flags().GetString("translated")
		format, _ := cmd.Flags().GetString("format")
		boxColor, _ := cmd.Flags().GetString("color")

		if format != "json" && format != "yaml" {
			return fmt.Errorf("unsupported format %q, use json or yaml", format)
		}

		doc, err := readDocument(ocrPath)
		if err != nil {
			return err
		}
		items, err := readTranslations(translatedPath)
		if err != nil {
			return err
		}

		boxes := buildBoxes(doc, items, layout.WithColor(boxColor))
		if err := writeBoxes(cmd.OutOrStdout(), boxes, format); err != nil {
			return err
		}

		lines, manual := layout.Assemble(doc)
		printSummary(cmd.ErrOrStderr(), len(lines), len(manual), len(items), len(boxes))
		return nil
	},
}

func readDocument(path string) (*layout.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading OCR result: %w", err)
	}
	var doc layout.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing OCR result %s: %w", path, err)
	}
	return &doc, nil
}

// readTranslations accepts the stored [{index, original, translated}] form
// as well as a plain array of strings.
func readTranslations(path string) ([]translate.Item, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading translations: %w", err)
	}

	var items []translate.Item
	if err := json.Unmarshal(data, &items); err == nil {
		return items, nil
	}

	var texts []string
	if err := json.Unmarshal(data, &texts); err != nil {
		return nil, fmt.Errorf("error parsing translations %s: %w", path, err)
	}
	items = make([]translate.Item, len(texts))
	for i, text := range texts {
		items[i] = translate.Item{Index: i, Translated: text}
	}
	return items, nil
}

func writeBoxes(w io.Writer, boxes []layout.LayoutBox, format string) error {
	if boxes == nil {
		boxes = []layout.LayoutBox{}
	}
	var (
		data []byte
		err  error
	)
	switch format {
	case "yaml":
		data, err = yaml.Marshal(boxes)
	default:
		data, err = json.MarshalIndent(boxes, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("error encoding boxes: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func printSummary(w io.Writer, lines, manual, translations, boxes int) {
	bold := color.New(color.Bold)
	bold.Fprintf(w, "lines: %d  manual: %d  translations: %d\n", lines, manual, translations)

	expected := lines + manual
	if translations < lines {
		expected = translations + manual
	}
	if boxes < expected {
		color.New(color.FgYellow).Fprintf(w, "boxes: %d (manual entries without coordinates were skipped)\n", boxes)
		return
	}
	if translations < lines {
		color.New(color.FgYellow).Fprintf(w, "boxes: %d (%d lines had no translation)\n", boxes, lines-translations)
		return
	}
	color.New(color.FgGreen).Fprintf(w, "boxes: %d\n", boxes)
}

func init() {
	ll := os.Getenv("LOG_LEVEL")
	if ll == "" {
		ll = "info"
	}
	RootCmd.PersistentFlags().String("log-level", ll, "The logging level (debug, info, warn, error)")

	boxesCmd.Flags().String("ocr", "", "Path to the OCR result JSON")
	boxesCmd.Flags().String("translated", "", "Path to the translated JSON")
	boxesCmd.Flags().String("format", "json", "Output format: json or yaml")
	boxesCmd.Flags().String("color", layout.DefaultColor, "Text color for every box")
	_ = boxesCmd.MarkFlagRequired("ocr")

	RootCmd.AddCommand(serveCmd, boxesCmd)
}
