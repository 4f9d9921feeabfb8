/*
Package operation turns one manifest entry into the argument vector for the
external transfer tool.

	+-------------+      +------------+      +-----------------+
	|    Kind     | ---> |   Build    | ---> | []string (argv) |
	| copy/move/… |      | (+ class)  |      |  no shell       |
	+-------------+      +------------+      +-----------------+

🎯 Shapes:

	copy|move|sync  leaf       <op> -P <src>/<item> <dst>/
	copy|move|sync  container  <op> -P <src>/<item> <dst>/<item>
	delete          leaf       delete -P <src>/<item>
	delete          container  purge -P <src>/<item>
	check           any        check -P <src>/<item> <dst>/<item>

Extra parameters are split on whitespace and appended after the positional
arguments. Roots are normalized to forward slashes with exactly one trailing
slash, so "remote:media" and "remote:media/" build the same commands.

The binary name is not part of the vector; the rclone package prepends it.
*/
package operation
