package iocache

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/assetcache/internal/contract"
	"github.com/huangsam/assetcache/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

const timeLayout = "2006-01-02 15:04:05"

// MarkCurrent flags the namespace matching currentName.
func MarkCurrent(status *schema.StorageStatus, currentName string) {
	for i := range status.Namespaces {
		status.Namespaces[i].Current = status.Namespaces[i].Namespace == currentName
	}
}

// PrintStorageStatus prints cache status information.
func PrintStorageStatus(w io.Writer, status schema.StorageStatus) {
	_, _ = fmt.Fprintf(w, "Cache Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Schema Version: %d\n", status.SchemaVersion)
	_, _ = fmt.Fprintf(w, "Namespaces: %d\n", len(status.Namespaces))
	for _, ns := range status.Namespaces {
		_, _ = fmt.Fprintf(w, "\n%s [%s]\n", ns.Namespace, contract.GetColorLabel(ns.Current))
		_, _ = fmt.Fprintf(w, "  Total Entries: %d\n", ns.TotalEntries)
		_, _ = fmt.Fprintf(w, "  Body Size: %s (%s stored)\n", contract.FormatBytes(ns.TotalBytes), contract.FormatBytes(ns.StoredBytes))
		if ns.TotalEntries > 0 {
			_, _ = fmt.Fprintf(w, "  Last Entry: %s\n", ns.LastEntryTime.Format(timeLayout))
			_, _ = fmt.Fprintf(w, "  Oldest Entry: %s\n", ns.OldestEntryTime.Format(timeLayout))
		}
	}
	_, _ = fmt.Fprintf(w, "\nTable Size: %s\n", contract.FormatBytes(status.TableSizeBytes))
}

// PrintNamespaceTable prints one row per cache store.
func PrintNamespaceTable(w io.Writer, namespaces []schema.CacheStatus) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Namespace", "Label", "Entries", "Size", "Stored", "Created"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, ns := range namespaces {
		data = append(data, []string{
			ns.Namespace,
			contract.GetColorLabel(ns.Current),
			strconv.Itoa(ns.TotalEntries),
			contract.FormatBytes(ns.TotalBytes),
			contract.FormatBytes(ns.StoredBytes),
			ns.CreatedAt.Format(timeLayout),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// PrintEntryTable prints the entries of a single cache store.
func PrintEntryTable(w io.Writer, entries []schema.CacheEntryRecord) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"URL", "Status", "Type", "Content-Type", "Size", "Stored", "Age"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	now := time.Now()
	var data [][]string
	for _, e := range entries {
		data = append(data, []string{
			e.URL,
			strconv.Itoa(e.StatusCode),
			e.ResponseType,
			e.ContentType,
			contract.FormatBytes(e.BodySize),
			contract.FormatBytes(e.StoredSize),
			now.Sub(e.StoredAt).Truncate(time.Second).String(),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
