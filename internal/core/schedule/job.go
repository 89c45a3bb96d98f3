package schedule

import (
	"context"
	"time"

	"github.com/reugn/go-quartz/quartz"
)

const JOB_KEY = "der_schedule"

// Job adapts an Operator to the quartz scheduler.
type Job struct {
	operator *Operator
	clock    func() time.Time
}

func NewJob(operator *Operator) *Job {
	return &Job{operator: operator, clock: time.Now}
}

func (j *Job) Execute(_ context.Context) error {
	j.operator.Tick(j.clock().Unix())
	return nil
}

func (j *Job) Description() string {
	return "daily setpoint schedule"
}

// Start runs the job every second until ctx is done. The returned scheduler
// must be stopped by the caller.
func Start(ctx context.Context, operator *Operator) (quartz.Scheduler, error) {
	sched := quartz.NewStdScheduler()
	sched.Start(ctx)
	err := sched.ScheduleJob(quartz.NewJobDetail(NewJob(operator), quartz.NewJobKey(JOB_KEY)), quartz.NewSimpleTrigger(time.Second))
	if err != nil {
		sched.Stop()
		return nil, err
	}
	return sched, nil
}

var _ quartz.Job = (*Job)(nil)
