package game

import "fmt"

// Store layout: three per-room collections plus the room document itself.

func roomPath(code string) string {
	return "rooms/" + code
}

func playersCol(code string) string {
	return roomPath(code) + "/players"
}

func playerPath(code, uid string) string {
	return playersCol(code) + "/" + uid
}

func submissionsCol(code string) string {
	return roomPath(code) + "/submissions"
}

func submissionPath(code string, qIndex int, uid string) string {
	return fmt.Sprintf("%s/%d_%s", submissionsCol(code), qIndex, uid)
}
