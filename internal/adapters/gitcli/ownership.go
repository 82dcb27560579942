package gitcli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Owner is one author's share of a file
type Owner struct {
	Author  string `json:"author"`
	Commits int64  `json:"commits"`
	Percent int    `json:"percent"`
}

// topOwners is how many named authors survive before the rest collapse
// into a single Others bucket
const topOwners = 4

// Ownership parses shortlog for path and returns per author shares.
// Percentages are integers and always sum to exactly 100 for non empty input.
func (h HistoryReader) Ownership(ctx context.Context, dir, path string) []Owner {
	out := h.sh.Run(ctx, fmt.Sprintf("git shortlog --summary --numbered --email HEAD -- %s", shellQuote(path)), dir)

	var owners []Owner
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// lines look like "37\tJane Doe <jane@example.com>"
		count, author, ok := strings.Cut(line, "\t")
		if !ok {
			count, author, ok = strings.Cut(line, " ")
			if !ok {
				continue
			}
		}
		n, err := strconv.ParseInt(strings.TrimSpace(count), 10, 64)
		if err != nil {
			continue
		}
		owners = append(owners, Owner{Author: strings.TrimSpace(author), Commits: n})
	}
	if len(owners) == 0 {
		return nil
	}

	// shortlog is already sorted by --numbered, keep it deterministic anyway
	sort.SliceStable(owners, func(i, j int) bool { return owners[i].Commits > owners[j].Commits })

	if len(owners) > topOwners {
		rest := owners[topOwners:]
		var sum int64
		for _, o := range rest {
			sum += o.Commits
		}
		owners = append(owners[:topOwners:topOwners], Owner{
			Author:  fmt.Sprintf("%d Others", len(rest)),
			Commits: sum,
		})
	}

	return normalizePercent(owners)
}

// normalizePercent assigns integer percentages by largest remainder so the total is 100
func normalizePercent(owners []Owner) []Owner {
	var total int64
	for _, o := range owners {
		total += o.Commits
	}
	if total == 0 {
		return owners
	}

	type rem struct {
		idx  int
		frac float64
	}
	rems := make([]rem, len(owners))
	assigned := 0
	for i := range owners {
		exact := float64(owners[i].Commits) * 100 / float64(total)
		owners[i].Percent = int(exact)
		assigned += owners[i].Percent
		rems[i] = rem{idx: i, frac: exact - float64(int(exact))}
	}
	sort.SliceStable(rems, func(i, j int) bool { return rems[i].frac > rems[j].frac })
	for i := 0; i < 100-assigned && i < len(rems); i++ {
		owners[rems[i].idx].Percent++
	}
	return owners
}
