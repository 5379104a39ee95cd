package cmd

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	pathpkg "path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"wrangle/internal/hexfile"
	"wrangle/internal/logging"
	"wrangle/internal/memimg"
	"wrangle/internal/ui/colorize"
	"wrangle/internal/ui/viewer"
	"wrangle/internal/vhxfile"
	"wrangle/internal/wrangle/log"
)

// Format is the file layout selected by extension. The set is closed:
// hex records, 64-bit vhx chunks, or 128-bit vhx chunks.
type Format int

const (
	FormatHex Format = iota
	FormatVHX
	FormatVHX128
)

// detectFormat maps a path's extension onto a Format. Called on both
// the input and output argument before any file is touched.
func detectFormat(path string) (Format, error) {
	ext := strings.TrimPrefix(pathpkg.Ext(path), ".")
	switch ext {
	case "hex":
		return FormatHex, nil
	case "vhx":
		return FormatVHX, nil
	case "vhx128":
		return FormatVHX128, nil
	case "":
		return 0, fmt.Errorf("no file extension specified for %q", path)
	default:
		return 0, fmt.Errorf("unsupported file type %q", ext)
	}
}

// parseNumeric accepts decimal or 0x-prefixed hexadecimal flag values.
func parseNumeric(arg string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(arg, 0, bits)
	if err != nil {
		return 0, fmt.Errorf("%q is not a valid number", arg)
	}
	return v, nil
}

// options is one validated conversion request.
type options struct {
	endianness   memimg.Endianness
	chunkBits    int
	startAddress uint32
	fill         byte
}

// decodeFile reads input into an image according to its format.
func decodeFile(input string, format Format, opts options) (*memimg.Image, error) {
	f, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("could not read %q: %w", input, err)
	}
	defer f.Close()

	switch format {
	case FormatHex:
		return hexfile.Decode(f, input, opts.endianness, opts.fill)
	default:
		return vhxfile.Decode(f, input, opts.startAddress, opts.chunkBits)
	}
}

// encodeFile writes the image to output according to its format.
func encodeFile(output string, format Format, img *memimg.Image, opts options) error {
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("could not create %q: %w", output, err)
	}
	defer func() { _ = f.Close() }()

	switch format {
	case FormatHex:
		err = hexfile.Encode(f, img, opts.endianness)
	default:
		err = vhxfile.Encode(f, img, opts.chunkBits)
	}
	if err != nil {
		return fmt.Errorf("could not write %q: %w", output, err)
	}
	return f.Close()
}

// runConvert is the whole conversion pipeline: decode input, encode to
// output. Formats must already have been validated.
func runConvert(input, output string, opts options) error {
	inFormat, err := detectFormat(input)
	if err != nil {
		return err
	}
	outFormat, err := detectFormat(output)
	if err != nil {
		return err
	}

	img, err := decodeFile(input, inFormat, opts)
	if err != nil {
		return err
	}

	logger := logging.NewLogger()
	defer logger.Close()
	logger.Debug("decoded image",
		"input", input,
		"start", fmt.Sprintf("%#010x", img.StartAddress),
		"bytes", len(img.Bytes))

	return encodeFile(output, outFormat, img, opts)
}

// Inspection is the machine-readable summary printed by --json.
type Inspection struct {
	File         string   `json:"file" jsonschema:"title=File,description=Path of the inspected file"`
	Digest       string   `json:"digest" jsonschema:"title=Digest,description=SHA-256 of the file contents"`
	StartAddress string   `json:"start_address" jsonschema:"title=Start Address,description=Address of the first byte"`
	Size         int      `json:"size" jsonschema:"title=Size,description=Image size in bytes"`
	Words        int      `json:"words" jsonschema:"title=Words,description=Number of complete 32-bit words"`
	Dump         []string `json:"dump" jsonschema:"title=Dump,description=Address-annotated dump lines"`
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

func runJSON(input string, img *memimg.Image) error {
	digest, err := fileDigest(input)
	if err != nil {
		return err
	}

	out := Inspection{
		File:         input,
		Digest:       digest,
		StartAddress: fmt.Sprintf("%#010x", img.StartAddress),
		Size:         len(img.Bytes),
		Words:        img.WordCount(),
		Dump:         img.DumpLines(),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func runPlainDump(img *memimg.Image) error {
	if term.IsTerminal(os.Stdout.Fd()) {
		for _, line := range colorize.Dump(img.DumpLines()) {
			fmt.Println(line)
		}
		return nil
	}
	return img.Dump(os.Stdout)
}

var rootCmd = &cobra.Command{
	Use:   "wrangle <input> [output]",
	Short: "Wrestle .hex files into .vhx or vice versa",
	Long: `Wrangle converts firmware memory images between Intel HEX style
record files (.hex) and flat word-chunked hex dumps (.vhx, .vhx128).
With no output path the decoded image is shown instead of written.`,
	Example: `
# Convert a hex file for a 128-bit wide verification tool
wrangle firmware.hex firmware.vhx128

# Rebuild a hex file from a dump starting at 0x08000000
wrangle dump.vhx firmware.hex --start-address 0x08000000

# Inspect the memory layout without writing anything
wrangle firmware.hex
  `,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		log.Setup(debug)

		chunkBits, _ := cmd.Flags().GetInt("chunk-size")
		if !vhxfile.ValidChunkSize(chunkBits) {
			return fmt.Errorf("chunk size must be either 64 or 128, got %d", chunkBits)
		}

		endStr, _ := cmd.Flags().GetString("endianness")
		endianness, err := memimg.ParseEndianness(endStr)
		if err != nil {
			return err
		}

		startStr, _ := cmd.Flags().GetString("start-address")
		startAddress, err := parseNumeric(startStr, 32)
		if err != nil {
			return fmt.Errorf("invalid start address: %w", err)
		}

		fillStr, _ := cmd.Flags().GetString("fill")
		fill, err := parseNumeric(fillStr, 8)
		if err != nil {
			return fmt.Errorf("invalid fill byte: %w", err)
		}

		opts := options{
			endianness:   endianness,
			chunkBits:    chunkBits,
			startAddress: uint32(startAddress),
			fill:         byte(fill),
		}

		input := args[0]
		if len(args) == 2 {
			return runConvert(input, args[1], opts)
		}

		// Inspect mode. Validate the extension before touching the file.
		inFormat, err := detectFormat(input)
		if err != nil {
			return err
		}
		img, err := decodeFile(input, inFormat, opts)
		if err != nil {
			return err
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return runJSON(input, img)
		}

		noTUI, _ := cmd.Flags().GetBool("no-tui")
		if noTUI || !term.IsTerminal(os.Stdout.Fd()) {
			return runPlainDump(img)
		}

		return viewer.Run(cmd.Context(), input, img)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")

	rootCmd.Flags().BoolP("help", "h", false, "Help")
	rootCmd.Flags().IntP("chunk-size", "s", 128, "Chunk size to use for .vhx files (64 or 128)")
	rootCmd.Flags().StringP("endianness", "e", "little", "Endianness to use for .hex files")
	rootCmd.Flags().StringP("start-address", "a", "0", "Start address for .vhx files, only relevant when converting .vhx -> .hex")
	rootCmd.Flags().StringP("fill", "f", "0xff", "Byte value to fill holes in the memory layout with")
	rootCmd.Flags().BoolP("no-tui", "n", false, "Show the memory dump without the TUI viewer")
	rootCmd.Flags().BoolP("json", "j", false, "Output the inspection summary as JSON")
}

func Execute() {
	// Check if --no-tui is present, or if output is being piped, to
	// bypass fang's markdown rendering
	noTUI := false
	for _, arg := range os.Args[1:] {
		if arg == "--no-tui" || arg == "-n" || arg == "--json" || arg == "-j" {
			noTUI = true
			break
		}
	}

	if !noTUI && !term.IsTerminal(os.Stdout.Fd()) {
		noTUI = true
	}

	if noTUI {
		// Use cobra directly to avoid fang's automatic markdown rendering
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
	} else {
		// Use fang for enhanced CLI experience with markdown rendering
		if err := fang.Execute(
			context.Background(),
			rootCmd,
			fang.WithNotifySignal(os.Interrupt),
		); err != nil {
			os.Exit(1)
		}
	}
}
