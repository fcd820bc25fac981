package cmd

const (
	// statusLineFormat is the format string to use for status line printing. On
	// Windows, messages are limited to 79 characters because carriage return
	// wipes don't work once a character has been printed in the last column of
	// an 80-column console.
	statusLineFormat = "\r%-79.79s"
	// statusLineClearFormat is the format string to use for printing an empty
	// string to clear the status line. It adds a carriage return to return the
	// cursor to the beginning of the line.
	statusLineClearFormat = statusLineFormat + "\r"
)
