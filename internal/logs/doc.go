// Package logs reads the mediatool log file for the `logs` command.
//
// Lines can be narrowed to a single run by its identifier, which every stage
// log line carries as run_id. Follow mode polls the file from the last read
// offset until the context ends.
package logs
