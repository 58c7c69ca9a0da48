package irc

// Default limits for PartitionArguments.
const (
	DefaultPartitionArgLimit = MaxArgs
	DefaultPartitionMsgLimit = 400
)

// PartitionArguments splits args into consecutive groups so that each group
// holds at most argLimit arguments and at most msgLimit bytes, counting one
// separator byte per argument. Sizes are UTF-8 byte lengths.
//
// Groups keep the input order. An argument that alone exceeds msgLimit gets a
// group of its own. Callers use it to address many targets with several lines.
func PartitionArguments(args []string, argLimit, msgLimit int) [][]string {
	return partition(args, argLimit, msgLimit, func(s string) int { return len(s) })
}

// PartitionArguments is like the package level function but measures each
// argument in the connection's current encoding.
func (c *Conn) PartitionArguments(args []string, argLimit, msgLimit int) [][]string {
	return partition(args, argLimit, msgLimit, func(s string) int {
		b, err := c.text.encode(s)
		if err != nil {
			return len(s)
		}
		return len(b)
	})
}

func partition(args []string, argLimit, msgLimit int, size func(string) int) [][]string {
	var (
		groups  [][]string
		current []string
		used    int
	)

	for _, arg := range args {
		n := size(arg) + 1

		if len(current) > 0 && (used+n > msgLimit || len(current)+1 > argLimit) {
			groups = append(groups, current)
			current = nil
			used = 0
		}

		current = append(current, arg)
		used += n
	}

	if len(current) > 0 {
		groups = append(groups, current)
	}

	return groups
}
