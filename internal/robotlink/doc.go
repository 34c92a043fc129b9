// Package robotlink forwards table poses to the robot.
//
// The Controller is a pipeline sink. It keeps the latest robot and station
// poses, composes robot/target packets and hands them to a Sender. Packets
// are compact JSON terminated by a NUL byte, the framing the robot firmware
// reads. Senders queue packets and write them from their own goroutine so
// the vision loop never blocks on I/O.
package robotlink
