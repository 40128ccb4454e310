package ledger

import "log/slog"

// AddTransaction runs the ingestion pipeline on xact: finalize, extend by
// automated transactions, metadata validation on the transaction then each
// posting in order, UUID checksum deduplication, append.
//
// Failures split into two channels. A failed finalize or a duplicate UUID
// rejects silently: the back-reference is cleared and (false, nil) is
// returned, so a caller may continue ingesting subsequent records. Policy
// and assertion violations under the ERROR style are fatal and propagate as
// errors.
func (j *Journal) AddTransaction(xact *Transaction) (bool, error) {
	xact.Journal = j

	if err := xact.Finalize(); err != nil {
		j.logger().Debug("transaction failed to finalize",
			slog.String("payee", xact.Payee), slog.String("error", err.Error()))
		xact.Journal = nil
		return false, nil
	}

	if err := j.ExtendTransaction(xact); err != nil {
		return false, err
	}

	if err := j.RegisterAllMetadata(InTransaction{Xact: xact}); err != nil {
		return false, err
	}
	for _, post := range xact.Postings {
		if err := j.RegisterAllMetadata(InPosting{Post: post}); err != nil {
			return false, err
		}
	}

	// A transaction claiming an already-seen UUID is dropped outright, not
	// merged; the existing claimant keeps the registry slot. Automated
	// extension and metadata checks have still run against it by this point.
	if ref, ok := xact.TagValue(TagUUID); ok && ref != nil {
		if _, taken := j.checksums[*ref]; taken {
			xact.Journal = nil
			return false, nil
		}
		j.checksums[*ref] = xact
	}

	j.Transactions = append(j.Transactions, xact)
	return true, nil
}

// ExtendTransaction applies every automated transaction to xact in
// registration order. The automated list itself is never mutated here.
func (j *Journal) ExtendTransaction(xact *Transaction) error {
	for _, auto := range j.AutoXacts {
		if err := auto.ExtendTransaction(xact); err != nil {
			return err
		}
	}
	return nil
}

// RemoveTransaction erases xact from the journal by identity, clearing its
// back-reference. Returns false when xact is not present. Any checksum
// registry entry the transaction claimed is left in place.
func (j *Journal) RemoveTransaction(xact *Transaction) bool {
	for i, candidate := range j.Transactions {
		if candidate == xact {
			j.Transactions = append(j.Transactions[:i], j.Transactions[i+1:]...)
			xact.Journal = nil
			return true
		}
	}
	return false
}
