/*
go-poseoverlay draws real time pose detection results (skeleton landmarks,
bounding boxes and segmentation masks) onto a transparent canvas layered over
a video stream from a file, bundled clip or webcam.

Pose inference is delegated to a Detector.  A Runtime owns the Detector's
lifecycle and a Scheduler drives one detect and render cycle per refresh
tick, stopping on the first detection failure.

See the example/overlay directory for an application streaming the
composited video over HTTP.
*/
package poseoverlay
