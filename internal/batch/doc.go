// Package batch drives the trimmer across every configured channel.
//
// A Runner takes the single-instance lock under the state directory, asks the
// catalog for recordings newer than each channel's bookmark, downloads and
// verifies each source, and hands it to a fresh trimmer whose clips land in a
// per-run directory beside a JSON listing. One recording failing never stops
// the rest of the batch; the outcome of every recording is written to the
// ledger.
package batch
