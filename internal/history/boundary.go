package history

const (
	// DefaultDelegationTool is the tool name used to hand work to a subagent.
	DefaultDelegationTool = "task"
	// DefaultRoleArg is the delegation argument naming the target subagent.
	DefaultRoleArg = "subagent_type"
	// DefaultReviewerRole is the subagent whose completed call ends an iteration.
	DefaultReviewerRole = "reviewer"
)

// BoundaryDetector finds completed review-fix cycles in a conversation log.
// The zero value uses the default tool, argument and role names.
type BoundaryDetector struct {
	DelegationTool string
	RoleArg        string
	ReviewerRole   string
}

func (d BoundaryDetector) names() (tool, roleArg, reviewer string) {
	tool, roleArg, reviewer = d.DelegationTool, d.RoleArg, d.ReviewerRole
	if tool == "" {
		tool = DefaultDelegationTool
	}
	if roleArg == "" {
		roleArg = DefaultRoleArg
	}
	if reviewer == "" {
		reviewer = DefaultReviewerRole
	}
	return tool, roleArg, reviewer
}

// Detect returns, in ascending order, the indices of assistant tool-call
// messages holding a reviewer delegation with a matching result later in
// the log. A message counts once however many of its reviewer calls were
// answered; unanswered ones are skipped. Other delegations may sit between
// a call and its result.
func (d BoundaryDetector) Detect(msgs []Message) []int {
	tool, roleArg, reviewer := d.names()

	var boundaries []int
	for i, m := range msgs {
		tc, ok := m.(*AssistantToolCall)
		if !ok {
			continue
		}
		if hasAnsweredReviewerCall(msgs, i, tc, tool, roleArg, reviewer) {
			boundaries = append(boundaries, i)
		}
	}
	return boundaries
}

func hasAnsweredReviewerCall(msgs []Message, at int, tc *AssistantToolCall, tool, roleArg, reviewer string) bool {
	for _, c := range tc.Calls {
		if c.Name != tool {
			continue
		}
		if role, ok := c.Args.String(roleArg); !ok || role != reviewer {
			continue
		}
		if hasResultAfter(msgs, c.ID, at) {
			return true
		}
	}
	return false
}

func hasResultAfter(msgs []Message, id string, from int) bool {
	if id == "" {
		return false
	}
	for j := from + 1; j < len(msgs); j++ {
		if r, ok := msgs[j].(*ToolResult); ok && r.CallID == id {
			return true
		}
	}
	return false
}
