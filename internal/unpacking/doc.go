// Package unpacking implements the archive extraction stage.
//
// Only the first file entry of an archive is extracted, into the archive's
// own directory. Numbered multi-part RAR sets start from their first volume,
// and every volume is removed once extraction succeeds. The free-space check
// runs before anything is written, also in simulation mode, so a simulated
// run reports the same failures a real one would.
package unpacking
