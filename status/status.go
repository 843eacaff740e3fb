package status

//BatchStatus status of a job execution
type BatchStatus string

const (
	//STARTING job has been accepted by a dispatcher but not started
	STARTING BatchStatus = "STARTING"
	//STARTED job is running
	STARTED BatchStatus = "STARTED"
	//STOPPED job was cancelled before it finished
	STOPPED BatchStatus = "STOPPED"
	//COMPLETED job finished successfully
	COMPLETED BatchStatus = "COMPLETED"
	//FAILED job finished with an error
	FAILED BatchStatus = "FAILED"
	//UNKNOWN job aborted for an unknown reason
	UNKNOWN BatchStatus = "UNKNOWN"
)

var statuses = map[BatchStatus]int{
	STARTING:  0,
	STARTED:   1,
	STOPPED:   2,
	COMPLETED: 3,
	FAILED:    4,
	UNKNOWN:   5,
}

//Finished reports whether s is a terminal status
func (s BatchStatus) Finished() bool {
	return s == STOPPED || s == COMPLETED || s == FAILED
}

//And combines two statuses, the worse one wins
func (s BatchStatus) And(other BatchStatus) BatchStatus {
	i1, ok1 := statuses[s]
	i2, ok2 := statuses[other]
	if ok1 && ok2 {
		if i1 < i2 {
			return other
		}
		return s
	} else if ok1 {
		return other
	}
	return s
}
