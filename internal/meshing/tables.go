package meshing

// Cube corners are numbered by bit: bit 0 is +x, bit 1 is +y, bit 2 is +z.
var cornerOffsets = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1},
}

// cubeTetrahedra splits a cube into six tetrahedra sharing the main diagonal
// from corner 0 to corner 7. Each walks 0 -> +a -> +a+b -> 7 for one
// permutation (a,b,c) of the axes. Face diagonals always run from the lower
// to the upper corner, so neighbouring cubes agree on shared faces.
var cubeTetrahedra = [6][4]int{
	{0, 1, 3, 7}, // x y z
	{0, 1, 5, 7}, // x z y
	{0, 2, 3, 7}, // y x z
	{0, 2, 6, 7}, // y z x
	{0, 4, 5, 7}, // z x y
	{0, 4, 6, 7}, // z y x
}

// tetEdges lists the six edges of a tetrahedron as vertex pairs.
var tetEdges = [6][2]int{
	{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3},
}

// tetTriangles maps a 4-bit inside mask (bit i set when vertex i is solid)
// to triangles given as tetEdges indices. Complementary cases share the
// same triangles; winding is fixed up afterwards from the inside/outside
// split. Two-inside cases emit a quad as two triangles.
var tetTriangles = [16][][3]int{
	0:  nil,
	1:  {{0, 1, 2}},
	2:  {{0, 3, 4}},
	3:  {{1, 3, 4}, {1, 4, 2}},
	4:  {{1, 3, 5}},
	5:  {{0, 3, 5}, {0, 5, 2}},
	6:  {{0, 1, 5}, {0, 5, 4}},
	7:  {{2, 4, 5}},
	8:  {{2, 4, 5}},
	9:  {{0, 1, 5}, {0, 5, 4}},
	10: {{0, 3, 5}, {0, 5, 2}},
	11: {{1, 3, 5}},
	12: {{1, 3, 4}, {1, 4, 2}},
	13: {{0, 3, 4}},
	14: {{0, 1, 2}},
	15: nil,
}
