/*
Package log implements the logging framework of mutechan on top of seelog.

See https://github.com/cihub/seelog/wiki/Log-levels for an introduction to the
different logging levels.

Errors are logged exactly once, as early as possible: when an external package
returns an error, it is passed through log.Error(); when mutechan creates an
error itself, it is created with log.Error[f](). Conditions that should never
happen are created with log.Critical[f]() and passed to panic(). The store
service logs failures it hands back to remote clients with log.Warn[f](),
because it does not handle them itself.

Expected steady-state conditions (for example, a store address which has not
been published yet) are never logged above the debug level.
*/
package log
