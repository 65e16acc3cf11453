package zfs

import "slices"

// Property whitelists. Order matters: Properties() yields known properties in
// whitelist order.
var (
	appleProperties = []string{"com.apple.browse", "com.apple.ignoreowner", "com.apple.mimic", "com.apple.devdisk"}

	datasetProperties = []string{
		"available", "checksum", "compression", "compressratio", "context", "copies", "createtxg", "creation",
		"dedup", "defcontext", "encryption", "encryptionroot", "fscontext", "guid", "keyformat", "keylocation",
		"keystatus", "logbias", "logicalreferenced", "logicalused", "mlslabel", "objsetid", "pbkdf2iters",
		"primarycache", "readonly", "redundant_metadata", "refcompressratio", "referenced", "refreservation",
		"reservation", "rootcontext", "secondarycache", "snapdev", "snapshot_count", "snapshot_limit", "sync",
		"type", "used", "usedbychildren", "usedbydataset", "usedbyrefreservation", "usedbysnapshots", "volmode",
		"written",
	}

	filesystemProperties = []string{
		"aclmode", "aclinherit", "acltype", "atime", "canmount", "casesensitivity", "devices", "dnodesize",
		"exec", "filesystem_count", "filesystem_limit", "mounted", "mountpoint", "nbmand", "normalization",
		"overlay", "quota", "recordsize", "refquota", "relatime", "setuid", "sharenfs", "sharesmb",
		"snapdir", "special_small_blocks", "utf8only", "version", "vscan", "xattr", "zoned",
	}

	volumeProperties = []string{"volblocksize", "volsize"}

	snapshotProperties = []string{
		"clones", "compressratio", "context", "createtxg", "creation", "defcontext", "defer_destroy",
		"encryption", "fscontext", "guid", "logicalreferenced", "mlslabel", "objsetid", "primarycache",
		"refcompressratio", "referenced", "rootcontext", "secondarycache", "type", "used", "userrefs",
		"written",
	}

	filesystemSnapshotProperties = []string{
		"acltype", "casesensitivity", "devices", "exec", "nbmand", "normalization", "setuid", "utf8only",
		"version", "xattr",
	}

	volumeSnapshotProperties = []string{"volsize"}

	bookmarkProperties = []string{"createtxg", "creation", "guid", "logicalreferenced", "referenced", "type"}
)

// Precomputed whitelists per concrete type.
var (
	genericWhitelist    = datasetProperties
	filesystemWhitelist = slices.Concat(datasetProperties, filesystemProperties, appleProperties)
	volumeWhitelist     = slices.Concat(datasetProperties, volumeProperties)

	snapshotOfFilesystemWhitelist = slices.Concat(snapshotProperties, filesystemSnapshotProperties)
	snapshotOfVolumeWhitelist     = slices.Concat(snapshotProperties, volumeSnapshotProperties)
	snapshotOfGenericWhitelist    = slices.Concat(snapshotProperties, filesystemSnapshotProperties, volumeSnapshotProperties)

	bookmarkWhitelist = bookmarkProperties
)

// knownProperties is the global union used by ValidateAttribute. It also
// holds "all", which zfs get accepts in place of a property list.
var knownProperties = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, l := range [][]string{
		appleProperties, datasetProperties, filesystemProperties, volumeProperties, snapshotProperties,
		filesystemSnapshotProperties, volumeSnapshotProperties, bookmarkProperties, {"all"},
	} {
		for _, p := range l {
			m[p] = struct{}{}
		}
	}
	return m
}()

// IsKnownProperty reports whether name is a member of the known property union.
func IsKnownProperty(name string) bool {
	_, ok := knownProperties[name]
	return ok
}
