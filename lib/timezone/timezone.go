package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Jerusalem")
	if err != nil {
		panic(err)
	}
}

// force timezone to be the portal's timezone because the servers
// may end up anywhere, which will cause disturbances when
// manipulating dates based on <time.Time>.Year()/Month()/Day()/Hour()/...
func Now() time.Time {
	return time.Now().In(Location)
}
