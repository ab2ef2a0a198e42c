// Package process navigates by running allow-listed local commands,
// for example opening a document or a browser tab for the current stage.
package process
