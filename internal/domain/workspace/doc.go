// Package workspace exposes the sandbox's file tree.
//
// A Store holds the files: LocalStore on disk, or BlobStore on a remote
// object service. The Manager sits in front of either one. It normalizes
// and confines every path before the store sees it, detects MIME types on
// read, and couples directory deletion to the process registry so nothing
// keeps running inside a directory that is about to disappear.
package workspace
