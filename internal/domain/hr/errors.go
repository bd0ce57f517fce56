package hr

import "errors"

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrNoAttendanceData = errors.New("no attendance data for employee")
	ErrNoBaseSalary     = errors.New("employee has no base salary configured")
)
