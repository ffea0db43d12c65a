package wallet

// EntryCount is a test helper reporting how many ledger entries the in-memory
// repository holds for a wallet. Pass an empty wallet id to count all entries.
func EntryCount(r Repository, walletID string) int {
	mem, ok := r.(*memoryRepository)
	if !ok {
		return 0
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	if walletID == "" {
		return len(mem.entries)
	}
	n := 0
	for _, e := range mem.entries {
		if e.WalletID == walletID {
			n++
		}
	}
	return n
}
