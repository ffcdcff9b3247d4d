package domain

const unknownDescription = "Unknown"

// UpdateResult describes what Update did.
type UpdateResult string

// Possible update outcomes.
const (
	// UpdateResultUpdated means a new version was installed and the entry rewritten.
	UpdateResultUpdated UpdateResult = "updated"

	// UpdateResultAlreadyAtVersion means the requested version is already installed.
	UpdateResultAlreadyAtVersion UpdateResult = "already_at_version"

	// UpdateResultAlreadyLatest means the latest registry version is already installed.
	UpdateResultAlreadyLatest UpdateResult = "already_latest"
)

// IsValid returns true if the update result is recognised.
func (r UpdateResult) IsValid() bool {
	switch r {
	case UpdateResultUpdated, UpdateResultAlreadyAtVersion, UpdateResultAlreadyLatest:
		return true
	default:
		return false
	}
}

// Changed returns true if Update touched the install or configuration.
func (r UpdateResult) Changed() bool {
	return r == UpdateResultUpdated
}

// String returns the string representation.
func (r UpdateResult) String() string {
	return string(r)
}

// Description returns a human-readable description of the result.
func (r UpdateResult) Description() string {
	switch r {
	case UpdateResultUpdated:
		return "Updated"
	case UpdateResultAlreadyAtVersion:
		return "Already at requested version"
	case UpdateResultAlreadyLatest:
		return "Already at latest version"
	default:
		return unknownDescription
	}
}

// VerifyStatus is the outcome of verifying one configuration entry.
type VerifyStatus string

// Possible verification outcomes.
const (
	// VerifyStatusOK means the install directory and binary are present.
	VerifyStatusOK VerifyStatus = "ok"

	// VerifyStatusRepaired means a missing install was downloaded.
	VerifyStatusRepaired VerifyStatus = "repaired"

	// VerifyStatusMissingBinary means the directory exists without the binary.
	VerifyStatusMissingBinary VerifyStatus = "missing_binary"

	// VerifyStatusMissingDirectory means the install is absent and auto-download is off.
	VerifyStatusMissingDirectory VerifyStatus = "missing_directory"

	// VerifyStatusRepairFailed means auto-download was attempted and failed.
	VerifyStatusRepairFailed VerifyStatus = "repair_failed"
)

// IsValid returns true if the status is recognised.
func (s VerifyStatus) IsValid() bool {
	switch s {
	case VerifyStatusOK, VerifyStatusRepaired, VerifyStatusMissingBinary,
		VerifyStatusMissingDirectory, VerifyStatusRepairFailed:
		return true
	default:
		return false
	}
}

// Healthy returns true if the entry is usable after verification.
func (s VerifyStatus) Healthy() bool {
	return s == VerifyStatusOK || s == VerifyStatusRepaired
}

// String returns the string representation.
func (s VerifyStatus) String() string {
	return string(s)
}

// Description returns a human-readable description of the status.
func (s VerifyStatus) Description() string {
	switch s {
	case VerifyStatusOK:
		return "OK"
	case VerifyStatusRepaired:
		return "Downloaded"
	case VerifyStatusMissingBinary:
		return "Binary missing"
	case VerifyStatusMissingDirectory:
		return "Not installed"
	case VerifyStatusRepairFailed:
		return "Download failed"
	default:
		return unknownDescription
	}
}

// VerifyEntry is the verification result for one configuration entry.
type VerifyEntry struct {
	Name     string
	Settings ConnectorSettings
	Status   VerifyStatus
	Err      error
}

// VerifyReport collects per-entry verification results.
type VerifyReport struct {
	Entries []VerifyEntry
}

// OK returns true if every entry is healthy.
func (r *VerifyReport) OK() bool {
	for _, e := range r.Entries {
		if !e.Status.Healthy() {
			return false
		}
	}
	return true
}

// Failed returns the entries that are not healthy.
func (r *VerifyReport) Failed() []VerifyEntry {
	var failed []VerifyEntry
	for _, e := range r.Entries {
		if !e.Status.Healthy() {
			failed = append(failed, e)
		}
	}
	return failed
}

// Count returns the number of entries with status.
func (r *VerifyReport) Count(status VerifyStatus) int {
	n := 0
	for _, e := range r.Entries {
		if e.Status == status {
			n++
		}
	}
	return n
}
