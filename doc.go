// Package zpk reads, writes and extracts Zuri package archives.
//
// A package archive is a single file holding a FlatBuffers manifest that
// describes an entry tree, followed by the concatenated bytes of every file
// entry:
//
//	offset 0   "zpk1"           file identifier
//	offset 4   u8               format version (1)
//	offset 5   u8               flags (bit 0: content is zstd compressed)
//	offset 6   u32 little end.  manifest size N
//	offset 10  N bytes          manifest
//	offset 10+N                 content
//
// # Writing
//
// Declare entries on a [Writer] and call WritePackage:
//
//	w := zpk.NewWriter(spec, zpk.WithInstallRoot(dir))
//	if _, err := w.MakeDirectory("/lib", true); err != nil {
//	    return err
//	}
//	if _, err := w.PutFile("/lib/core.zb", code); err != nil {
//	    return err
//	}
//	path, err := w.WritePackage(ctx)
//
// Unless disabled, the writer adds a /package.config YAML entry recording
// the package specifier, description and requirements.
//
// # Reading
//
// [Open] or [NewReader] validate the header and manifest. [Reader] returns
// zero-copy views of file contents and implements [io/fs.FS].
//
// # Extracting
//
// [Extractor] materializes an archive below a destination root at
// domain/name/version, staging the tree in a temporary directory and
// renaming it into place once complete.
package zpk
