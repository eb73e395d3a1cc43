/*
Package storage keeps a history of provisioning runs in an embedded BoltDB
database.

Every call to the provision command produces one types.ProvisionRecord:
the workspace identity, whether the pipeline succeeded, the error or the
warnings it produced, and the resolved attributes of each machine. Records
are stored as JSON under their ID in a single bucket:

	<dataDir>/burrow.db
	  provision_records   (record ID -> JSON)

Reads run in db.View and writes in db.Update, so a reader never sees a
half-written record. The history is small (one record per run) and lookups
by workspace are full bucket scans.

# Usage

	store, err := storage.NewBoltStore("/var/lib/burrow")
	if err != nil {
		return err
	}
	defer store.Close()

	record := &types.ProvisionRecord{
		WorkspaceID: "workspace123",
		Status:      types.ProvisionStatusSucceeded,
	}
	if err := store.SaveRecord(record); err != nil {
		return err
	}

	history, err := store.ListRecordsByWorkspace("workspace123")

PruneWorkspace trims old runs of a workspace, keeping the newest ones.
*/
package storage
