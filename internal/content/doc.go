// Package content loads the site's posts and projects.
//
// A content root holds site.yaml plus one directory per category (posts/,
// projects/) of .mdx files. Each file opens with a header block of
// "key: value" lines between two "---" lines, followed by a markdown body.
//
// The package has two layers:
//   - the loader ([ListFiles], [ParseFrontmatter], [ReadEntry],
//     [LoadEntries]) turns files into untyped [Entry] values, and
//     [PostFromEntry]/[ProjectFromEntry] validate them into typed records;
//   - the serving side builds an immutable [Snapshot] from a disk root
//     ([DiskLoader]) or a published tar.gz bundle ([BundleLoader]), keeps
//     the active one in a [Manager], and swaps it when [DirWatcher] sees
//     the disk change or [Watcher] sees a new bundle hash in SSM.
//
// Bundle extraction enforces limits on compressed size, per-file size and
// total extracted size, and rejects links and path traversal.
package content
