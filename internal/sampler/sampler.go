// Package sampler draws training candidates from a pool of srcids.
package sampler

import (
	"math/rand/v2"
	"strings"
	"unicode"
)

type Options struct {
	// UseCluster groups srcids by the shape of their sentence and draws
	// round-robin across the groups.
	UseCluster bool
	// UniqueClusters takes at most one srcid per group.
	UniqueClusters bool
	// Sentences maps srcid to the metadata string it is clustered by.
	// Srcids without a sentence form a group of their own.
	Sentences map[string]string
	Rand      *rand.Rand
}

// SelectRandom returns up to n distinct srcids from srcids.
func SelectRandom(srcids []string, n int, opts Options) []string {
	if n <= 0 {
		return nil
	}
	r := opts.Rand
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	pool := dedup(srcids)
	r.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	if !opts.UseCluster {
		if n < len(pool) {
			pool = pool[:n]
		}
		return pool
	}

	var order []string
	clusters := make(map[string][]string)
	for _, srcid := range pool {
		key := "srcid:" + srcid
		if sentence, ok := opts.Sentences[srcid]; ok {
			key = Shape(sentence)
		}
		if _, ok := clusters[key]; !ok {
			order = append(order, key)
		}
		clusters[key] = append(clusters[key], srcid)
	}

	out := make([]string, 0, n)
	for round := 0; len(out) < n; round++ {
		drew := false
		for _, key := range order {
			members := clusters[key]
			if round >= len(members) {
				continue
			}
			out = append(out, members[round])
			drew = true
			if len(out) == n {
				break
			}
		}
		if !drew || opts.UniqueClusters {
			break
		}
	}
	return out
}

// Shape reduces a metadata string to its token pattern: lower case, digit
// runs collapsed to a single 0, tokens split on punctuation.
func Shape(sentence string) string {
	var b strings.Builder
	inDigits := false
	for _, c := range strings.ToLower(sentence) {
		switch {
		case unicode.IsDigit(c):
			if !inDigits {
				b.WriteByte('0')
			}
			inDigits = true
			continue
		case unicode.IsLetter(c):
			b.WriteRune(c)
		default:
			b.WriteByte(' ')
		}
		inDigits = false
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func dedup(srcids []string) []string {
	seen := make(map[string]struct{}, len(srcids))
	out := make([]string, 0, len(srcids))
	for _, srcid := range srcids {
		if _, ok := seen[srcid]; ok {
			continue
		}
		seen[srcid] = struct{}{}
		out = append(out, srcid)
	}
	return out
}
