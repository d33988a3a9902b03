// Package render turns scenes into render plans and hands them to an
// external animation renderer.
//
// A plan lists, per scene, the title, explanation lines, equations, the
// fixed animation steps for the scene's visual, the narration file and how
// long to hold the frame. The renderer reads the plan from the path in
// ANIMLAB_RENDER_PLAN. When no renderer is configured the plan is written and
// the job ends there.
package render
