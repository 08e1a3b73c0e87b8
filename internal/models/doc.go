// Package models defines the core domain models for the equb engine.
//
// # Models
//
//   - Group: an equb-configured group and its running round counter
//   - GroupMember: a member's role and status within one group
//   - Round: one contribution-and-payout cycle of a group
//   - Contribution: one member's payment obligation for one round
//   - Notification: an outbox record for a message sent to a member
//
// # Design Principles
//
//  1. **Id references only**: models never hold pointers to each other. Related records
//     are looked up through the storage interfaces.
//  2. **Frozen rounds**: a Round copies the group settings it depends on (grace period,
//     penalty) and its contributions freeze the eligible member set, so later group edits
//     never reach an in-flight round.
//  3. **Money as decimal**: amounts use shopspring/decimal, never float64.
package models
