package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aleksaelezovic/ripple/pkg/ripple"
	"github.com/aleksaelezovic/ripple/pkg/snapshot"
)

var storePath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ripple",
		Short: "A reactive in-memory quad-store with incremental pattern matching.",
	}
	root.PersistentFlags().StringVar(&storePath, "store", "./ripple.json", "path to the JSON snapshot file backing add/query/watch")

	root.AddCommand(newDemoCmd())
	root.AddCommand(newAddCmd())
	root.AddCommand(newQueryCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newServeCmd())
	return root
}

// loadStore reads storePath's JSON snapshot into a fresh Store, or
// returns an empty Store if the file does not yet exist.
func loadStore() (*ripple.Store, error) {
	s := ripple.New()
	f, err := os.Open(storePath)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", storePath, err)
	}
	defer f.Close()

	if err := snapshot.LoadSnapshot(f, s); err != nil {
		return nil, fmt.Errorf("loading %s: %w", storePath, err)
	}
	return s, nil
}

// saveStore writes s's current contents to storePath as a JSON snapshot.
func saveStore(s *ripple.Store) error {
	f, err := os.Create(storePath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", storePath, err)
	}
	defer f.Close()

	if err := snapshot.WriteSnapshot(f, s); err != nil {
		return fmt.Errorf("writing %s: %w", storePath, err)
	}
	return nil
}
