// Inspect dumps hub records straight out of a Badger directory, for
// debugging a hub that is stopped or misbehaving. Read-only.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"lanhub/domain"
	"lanhub/domain/event"
)

func main() {
	dbPath := flag.String("db", "data/hub", "Path to badger DB")
	prefix := flag.String("prefix", "room:", "Prefix to scan (room: or event:)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	switch {
	case strings.HasPrefix(*prefix, "room:"):
		table.SetHeader([]string{"Room", "Created", "Created By", "Participants", "Files", "Polls", "Notes"})
	case strings.HasPrefix(*prefix, "event:"):
		table.SetHeader([]string{"Key", "ID", "Type", "Timestamp", "Data"})
	default:
		table.SetHeader([]string{"Key", "Value"})
	}
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			// Sequence counters are binary, skip them in value dumps.
			if strings.HasPrefix(key, "evseq:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				switch {
				case strings.HasPrefix(key, "room:"):
					appendRoomRow(table, key, v)
				case strings.HasPrefix(key, "event:"):
					appendEventRow(table, key, v)
				default:
					table.Append([]string{key, truncate(string(v), 80)})
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		color.Red.Println("scan failed:", err)
		os.Exit(1)
	}

	table.Render()
}

func appendRoomRow(table *tablewriter.Table, key string, v []byte) {
	var room domain.Room
	if err := json.Unmarshal(v, &room); err != nil {
		color.Yellow.Printf("Error unmarshaling key %s: %v\n", key, err)
		return
	}
	table.Append([]string{
		room.ID,
		time.Unix(room.Created, 0).UTC().Format(time.RFC3339),
		room.CreatedBy,
		strconv.Itoa(len(room.Participants)),
		strconv.Itoa(len(room.Files)),
		strconv.Itoa(len(room.Polls)),
		truncate(room.Notes, 40),
	})
}

func appendEventRow(table *tablewriter.Table, key string, v []byte) {
	var ev event.Event
	if err := json.Unmarshal(v, &ev); err != nil {
		color.Yellow.Printf("Error unmarshaling key %s: %v\n", key, err)
		return
	}
	table.Append([]string{
		key,
		strconv.FormatInt(ev.ID, 10),
		string(ev.Type),
		time.Unix(ev.Timestamp, 0).UTC().Format("15:04:05"),
		truncate(string(ev.Data), 60),
	})
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open read-only: %w", err)
	}
	return db, nil
}
