// Package killswitch keeps blocked applications offline while their
// interface is being rebuilt. Between closing the old interface and
// publishing the new one their traffic would otherwise take the normal path.
package killswitch

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/user/app-blackhole/internal/logger"
)

const (
	table     = "filter"
	hookChain = "OUTPUT"
	chainName = "BLACKHOLE_GAP"
)

// Tables is the subset of go-iptables the guard uses, one per address family.
type Tables interface {
	Exists(table, chain string, rulespec ...string) (bool, error)
	Insert(table, chain string, pos int, rulespec ...string) error
	Append(table, chain string, rulespec ...string) error
	Delete(table, chain string, rulespec ...string) error
	ClearChain(table, chain string) error
	ClearAndDeleteChain(table, chain string) error
}

// Guard rejects outbound traffic of a set of uids while engaged.
type Guard struct {
	mu      sync.Mutex
	tables  []Tables
	engaged bool
	uids    []uint32
}

// NewWith creates a guard over the given tables.
func NewWith(tables ...Tables) *Guard {
	return &Guard{tables: tables}
}

// Engage rejects all outbound traffic of uids. Engaging again replaces the
// uid list. If any table cannot be set up, every table touched so far is
// restored and the guard is left disengaged.
func (g *Guard) Engage(uids []uint32) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i, t := range g.tables {
		if err := engageTable(t, uids); err != nil {
			for _, done := range g.tables[:i+1] {
				if rerr := releaseTable(done); rerr != nil {
					logger.Warning("Gap guard rollback: %v", rerr)
				}
			}
			g.engaged = false
			g.uids = nil
			return err
		}
	}

	g.engaged = true
	g.uids = append([]uint32(nil), uids...)
	logger.Debug("Gap guard engaged for uids %v", uids)
	return nil
}

// Release removes the hook and the chain. Releasing a disengaged guard is a
// no-op.
func (g *Guard) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.engaged {
		return nil
	}

	var firstErr error
	for _, t := range g.tables {
		if err := releaseTable(t); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	g.engaged = false
	g.uids = nil
	logger.Debug("Gap guard released")
	return firstErr
}

func engageTable(t Tables, uids []uint32) error {
	if err := t.ClearChain(table, chainName); err != nil {
		return fmt.Errorf("failed to prepare chain %s: %w", chainName, err)
	}
	for _, uid := range uids {
		if err := t.Append(table, chainName, ownerRule(uid)...); err != nil {
			return fmt.Errorf("failed to reject uid %d: %w", uid, err)
		}
	}

	hooked, err := t.Exists(table, hookChain, "-j", chainName)
	if err != nil {
		return fmt.Errorf("failed to check %s hook: %w", hookChain, err)
	}
	if !hooked {
		if err := t.Insert(table, hookChain, 1, "-j", chainName); err != nil {
			return fmt.Errorf("failed to hook %s into %s: %w", chainName, hookChain, err)
		}
	}
	return nil
}

// releaseTable unhooks the chain before deleting it; iptables refuses to
// delete a chain that is still referenced.
func releaseTable(t Tables) error {
	var firstErr error
	if hooked, err := t.Exists(table, hookChain, "-j", chainName); err == nil && hooked {
		if err := t.Delete(table, hookChain, "-j", chainName); err != nil {
			firstErr = fmt.Errorf("failed to unhook %s: %w", chainName, err)
		}
	}
	if err := t.ClearAndDeleteChain(table, chainName); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to delete chain %s: %w", chainName, err)
	}
	return firstErr
}

func ownerRule(uid uint32) []string {
	return []string{"-m", "owner", "--uid-owner", strconv.FormatUint(uint64(uid), 10), "-j", "REJECT"}
}
