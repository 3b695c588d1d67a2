// Package archive keeps local snapshots of chat transcripts in SQLite.
// A debugging console frequently outlives the conversations it inspects;
// archiving pins what was actually on screen, independent of what the
// gateway later renames or deletes.
package archive
