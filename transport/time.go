package transport

import "time"

// timeAfter is indirected so retry-loop tests can substitute a fast clock.
var timeAfter = time.After
