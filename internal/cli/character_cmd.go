package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"yumeadmin/internal/character"
	"yumeadmin/pkg/yumetypes"
)

// addCharacterCommands wires the character persona subcommands.
func (a *App) addCharacterCommands(rootCmd *cobra.Command) {
	characterCmd := &cobra.Command{
		Use:   "character",
		Short: "Inspect and edit character personas",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the known character identifiers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.Store.RefreshCharacterOptions(cmd.Context()); err != nil {
				return err
			}
			for _, name := range a.Store.Snapshot().Config.CharacterOptions {
				fmt.Println(name)
			}
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show [name]",
		Short: "Display one character document (defaults to the active one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			if target == "" {
				if err := a.Store.LoadConfig(cmd.Context()); err != nil {
					return err
				}
				target = a.Store.Snapshot().Config.Character
			}
			if strings.TrimSpace(target) == "" {
				fmt.Println("no character selected")
				return nil
			}
			if err := a.Store.LoadCharacter(cmd.Context(), target); err != nil {
				return err
			}

			state := a.Store.Snapshot()
			editor := character.ToEditorText(state.Character)
			fmt.Printf("file:        %s\n", state.CharacterFile)
			fmt.Printf("name:        %s\n", state.Character.Name)
			fmt.Printf("description: %s\n", state.Character.Description)
			fmt.Printf("personality:\n%s\n", editor.Personality)
			fmt.Printf("responses:\n%s\n", editor.Responses)
			fmt.Printf("behavior:\n%s\n", editor.Behavior)
			fmt.Printf("quotes:\n%s\n", editor.Quotes)
			return nil
		},
	}

	var saveFrom string
	saveCmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Save a character document",
		Long: `Save writes a character document under the given identifier. With --file the
document is read from a YAML or JSON file; without it the server's current
document is saved back unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.resolveDocument(cmd, args[0], saveFrom)
			if err != nil {
				return err
			}
			if err := a.Store.SaveCharacter(cmd.Context(), args[0], doc); err != nil {
				return err
			}
			fmt.Println(a.Store.Snapshot().Status)
			return nil
		},
	}
	saveCmd.Flags().StringVar(&saveFrom, "file", "", "Read the document from this YAML/JSON file")

	var createFrom string
	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new character document and make it active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc *yumetypes.CharacterDocument
			if createFrom != "" {
				loaded, err := readDocumentFile(createFrom)
				if err != nil {
					return err
				}
				doc = &loaded
			}
			if err := a.Store.CreateCharacter(cmd.Context(), args[0], doc); err != nil {
				return err
			}
			state := a.Store.Snapshot()
			fmt.Printf("%s (active character: %s)\n", state.Status, state.Config.Character)
			return nil
		},
	}
	createCmd.Flags().StringVar(&createFrom, "file", "", "Read the document from this YAML/JSON file")

	var exportTo string
	exportCmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Export a character document as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Store.LoadCharacter(cmd.Context(), args[0]); err != nil {
				return err
			}
			out, err := character.EncodeYAML(a.Store.Snapshot().Character)
			if err != nil {
				return err
			}
			if exportTo == "" {
				fmt.Print(string(out))
				return nil
			}
			if err := os.WriteFile(exportTo, out, 0644); err != nil {
				return fmt.Errorf("write %s: %w", exportTo, err)
			}
			fmt.Printf("exported %s to %s\n", args[0], exportTo)
			return nil
		},
	}
	exportCmd.Flags().StringVarP(&exportTo, "output", "o", "", "Write to this file instead of stdout")

	characterCmd.AddCommand(listCmd)
	characterCmd.AddCommand(showCmd)
	characterCmd.AddCommand(saveCmd)
	characterCmd.AddCommand(createCmd)
	characterCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(characterCmd)
}

// resolveDocument returns the document to save: the given file when set,
// otherwise the server's current document for the identifier.
func (a *App) resolveDocument(cmd *cobra.Command, name, from string) (*yumetypes.CharacterDocument, error) {
	if from != "" {
		doc, err := readDocumentFile(from)
		if err != nil {
			return nil, err
		}
		return &doc, nil
	}
	if err := a.Store.LoadCharacter(cmd.Context(), name); err != nil {
		return nil, err
	}
	doc := a.Store.Snapshot().Character
	return &doc, nil
}

// readDocumentFile loads a character document from disk. JSON files go
// through the lenient normalizer; everything else parses as YAML.
func readDocumentFile(path string) (yumetypes.CharacterDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return yumetypes.CharacterDocument{}, fmt.Errorf("read %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if !json.Valid(data) {
			return yumetypes.CharacterDocument{}, fmt.Errorf("%s is not valid JSON", path)
		}
		return yumetypes.NormalizeCharacterDocument(data), nil
	}
	return character.DecodeYAML(data)
}
